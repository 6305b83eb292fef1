// Package subtitles writes per-clip SRT files for burn-in.
package subtitles

import (
	"fmt"
	"io"
	"strings"

	"github.com/clipforge/clipd/internal/types"
)

// WriteSRT emits the segments overlapping [start, end) as an SRT
// document with timestamps rebased to the clip start.
func WriteSRT(w io.Writer, segs []types.Segment, start, end float64) error {
	n := 0
	for _, s := range segs {
		if s.End <= start || s.Start >= end {
			continue
		}
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		from := s.Start - start
		if from < 0 {
			from = 0
		}
		to := s.End - start
		if to > end-start {
			to = end - start
		}
		n++
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			n, FormatTimestamp(from), FormatTimestamp(to), text); err != nil {
			return err
		}
	}
	return nil
}

// FormatTimestamp renders seconds as the SRT HH:MM:SS,mmm form.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
