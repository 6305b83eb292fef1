// Package facedet runs an external face detector over single frames.
// The detector is any executable that takes an image path and prints a
// JSON array of {x,y,w,h} boxes in pixel coordinates. When no detector
// is configured every probe reports zero faces, which keeps reframing
// on the single centered layout.
package facedet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/clipforge/clipd/internal/ports"
	"github.com/clipforge/clipd/internal/reframe"
)

type Adapter struct {
	bin    string
	ffmpeg string
}

func New(binPath, ffmpegPath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Adapter{bin: binPath, ffmpeg: ffmpegPath}
}

// Detect extracts the frame at the given timestamp and runs the
// detector over it. An empty result is a valid observation, not an
// error.
func (a *Adapter) Detect(ctx context.Context, videoPath string, at float64) ([]reframe.Box, error) {
	if a.bin == "" {
		return nil, nil
	}

	frame, err := a.extractFrame(ctx, videoPath, at)
	if err != nil {
		return nil, err
	}
	defer os.Remove(frame)

	cmd := exec.CommandContext(ctx, a.bin, frame)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}

	var raw []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parse detector output: %w", err)
	}

	boxes := make([]reframe.Box, 0, len(raw))
	for _, r := range raw {
		if r.W <= 0 || r.H <= 0 {
			continue
		}
		boxes = append(boxes, reframe.Box{X: r.X, Y: r.Y, W: r.W, H: r.H})
	}
	return boxes, nil
}

func (a *Adapter) extractFrame(ctx context.Context, videoPath string, at float64) (string, error) {
	f, err := os.CreateTemp("", "frame-*.jpg")
	if err != nil {
		return "", err
	}
	frame := f.Name()
	f.Close()

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		"-y", frame,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		os.Remove(frame)
		return "", fmt.Errorf("frame extract at %.1fs: %w\n%s", at, err, string(b))
	}
	if fi, err := os.Stat(frame); err != nil || fi.Size() == 0 {
		os.Remove(frame)
		return "", fmt.Errorf("frame extract at %.1fs: empty output %s", at, filepath.Base(frame))
	}
	return frame, nil
}

var _ ports.FaceDetector = (*Adapter)(nil)
