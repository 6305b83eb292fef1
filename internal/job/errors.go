package job

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a job id has no record.
var ErrNotFound = errors.New("job not found")

// ErrBusy is returned when a job already has an in-flight worker.
var ErrBusy = errors.New("job is already being processed")

// ValidationError rejects a request before any side effect happens.
// The job it targets is left untouched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// AcquisitionError wraps a download or probe failure after the bounded
// retries were exhausted.
type AcquisitionError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed after %d attempts for %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// TranscriptionError wraps a fatal transcription engine failure. There
// is no fallback for transcription.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string { return "transcription failed: " + e.Err.Error() }

func (e *TranscriptionError) Unwrap() error { return e.Err }

// RenderError wraps an encoder failure for one chapter.
type RenderError struct {
	ChapterID string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for chapter %s: %v", e.ChapterID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
