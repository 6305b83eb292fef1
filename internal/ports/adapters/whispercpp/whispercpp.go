// Package whispercpp transcribes audio by shelling out to the
// whisper.cpp CLI and reading its JSON output.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/clipforge/clipd/internal/job"
	"github.com/clipforge/clipd/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// Transcribe runs whisper.cpp against the media file. The language
// hint is passed through when set; "auto" lets the model detect. Any
// failure is fatal, wrapped as a TranscriptionError.
func (a *Adapter) Transcribe(ctx context.Context, mediaPath, languageHint string) (types.Transcript, error) {
	workDir := filepath.Dir(mediaPath)
	outPrefix := filepath.Join(workDir, "whisper")

	args := []string{
		"-m", a.model,
		"-f", mediaPath,
		"-oj",
		"-of", outPrefix,
	}
	if languageHint == "" {
		languageHint = "auto"
	}
	args = append(args, "-l", languageHint)

	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, &job.TranscriptionError{
			Err: fmt.Errorf("whisper.cpp: %w\n%s", err, string(b)),
		}
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, &job.TranscriptionError{Err: err}
	}

	var raw struct {
		Language string          `json:"language"`
		Segments []types.Segment `json:"segments"`
	}
	if err := json.Unmarshal(jb, &raw); err != nil {
		return types.Transcript{}, &job.TranscriptionError{Err: fmt.Errorf("parse whisper output: %w", err)}
	}

	tr := types.Transcript{Language: raw.Language, Segments: raw.Segments}
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
	}
	return tr, nil
}
