// Package ports declares the narrow contracts the pipeline consumes.
// Adapters live in subpackages; the core never imports them directly.
package ports

import (
	"context"

	"github.com/clipforge/clipd/internal/reframe"
	"github.com/clipforge/clipd/internal/types"
)

// Downloader acquires source media onto dest. Failures are transient
// and the adapter retries internally within its configured bound; the
// pipeline probes the landed file itself.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Transcriber produces an ordered, timed transcript. A failure here is
// fatal for the job; there is no fallback transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath, languageHint string) (types.Transcript, error)
}

// FaceDetector returns face bounding boxes for the frame at the given
// timestamp. Best effort: an empty result is a valid outcome, not an
// error.
type FaceDetector interface {
	Detect(ctx context.Context, videoPath string, at float64) ([]reframe.Box, error)
}

// EncodeSpec parameterizes one trim/crop/scale/subtitle-burn/mux
// operation.
type EncodeSpec struct {
	Input  string
	Output string
	Start  float64
	End    float64
	Width  int
	Height int

	Layout reframe.Layout
	// Crop applies in single layout.
	Crop reframe.Box
	// TopCrop and BottomCrop apply in split layout.
	TopCrop    reframe.Box
	BottomCrop reframe.Box

	// Subtitles is an optional SRT path burned into the output.
	Subtitles string
}

// Encoder runs the media tool. A non-zero exit or timeout is fatal for
// the affected render.
type Encoder interface {
	RenderClip(ctx context.Context, spec EncodeSpec) error
	Thumbnail(ctx context.Context, input string, at float64, output string) error
	Probe(ctx context.Context, path string) (types.VideoInfo, error)
}

// TextCompleter is a text-completion provider used by the AI analysis
// path. Absence or failure triggers the deterministic fallback and is
// never fatal.
type TextCompleter interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}
