// Package ytdlp downloads source media via the yt-dlp binary.
package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/clipforge/clipd/internal/job"
	"github.com/clipforge/clipd/internal/ports"
)

const defaultFormat = "bestvideo[ext=mp4][height<=1080]+bestaudio[ext=m4a]/best[ext=mp4]"

type Adapter struct {
	bin      string
	attempts int
	timeout  time.Duration
}

// New builds a downloader. An empty path falls back to yt-dlp on PATH;
// attempts below one becomes three.
func New(binPath string, attempts int, timeout time.Duration) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if attempts < 1 {
		attempts = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Adapter{bin: binPath, attempts: attempts, timeout: timeout}
}

// Download fetches the media to dest. Transient failures are retried
// up to the configured attempt count, each attempt under its own
// timeout; exhaustion returns an AcquisitionError.
func (a *Adapter) Download(ctx context.Context, url, dest string) error {
	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if err := a.fetch(ctx, url, dest); err != nil {
			lastErr = err
			continue
		}
		if err := checkNonEmpty(dest); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &job.AcquisitionError{URL: url, Attempts: a.attempts, Err: lastErr}
}

func (a *Adapter) fetch(ctx context.Context, url, dest string) error {
	attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(attemptCtx, a.bin,
		"-f", defaultFormat,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"-o", dest,
		url,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp: %w\n%s", err, truncate(string(b), 400))
	}
	return nil
}

// checkNonEmpty catches the exit-zero-but-nothing-written case some
// extractors produce.
func checkNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("downloaded file missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("downloaded file %s is empty", path)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ ports.Downloader = (*Adapter)(nil)
