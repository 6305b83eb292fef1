package subtitles

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clipforge/clipd/internal/ports"
	"github.com/clipforge/clipd/internal/types"
)

// Translate returns a copy of segs with the cue text rewritten in the
// target language by the completion provider. Timing is untouched. A
// missing provider, a provider failure, or an unusable reply comes
// back as an error and the caller keeps the source-language text.
func Translate(ctx context.Context, provider ports.TextCompleter, segs []types.Segment, targetLang string) ([]types.Segment, error) {
	if provider == nil {
		return nil, fmt.Errorf("no completion provider for translation to %s", targetLang)
	}
	if len(segs) == 0 {
		return nil, nil
	}

	raw, err := provider.Generate(ctx, translationPrompt(segs, targetLang))
	if err != nil {
		return nil, fmt.Errorf("translate via %s: %w", provider.Name(), err)
	}
	texts, err := parseNumberedLines(raw, len(segs))
	if err != nil {
		return nil, err
	}

	out := make([]types.Segment, len(segs))
	copy(out, segs)
	for i, t := range texts {
		if t != "" {
			out[i].Text = t
		}
	}
	return out, nil
}

func translationPrompt(segs []types.Segment, targetLang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following subtitle lines into %s.\n", targetLang)
	b.WriteString("Reply with the same numbered lines, one translation per line, and nothing else.\n\n")
	for i, s := range segs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(s.Text))
	}
	return b.String()
}

var numberedLineRe = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.+)$`)

// parseNumberedLines maps "N. text" reply lines back onto segment
// indexes. Lines the model skipped stay empty and keep their source
// text; a reply with no usable lines at all is an error.
func parseNumberedLines(raw string, n int) ([]string, error) {
	out := make([]string, n)
	found := 0
	for _, line := range strings.Split(raw, "\n") {
		m := numberedLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n {
			continue
		}
		if out[idx-1] == "" {
			found++
		}
		out[idx-1] = strings.TrimSpace(m[2])
	}
	if found == 0 {
		return nil, fmt.Errorf("no translated lines in reply of %d chars", len(raw))
	}
	return out, nil
}
