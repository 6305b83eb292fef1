package analyzer

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/clipforge/clipd/internal/types"
)

// aiChapterItem is the shape each provider is asked to emit per
// chapter. Fields are permissive; validation happens per entry.
type aiChapterItem struct {
	Title      string   `json:"title"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
	Hooks      []string `json:"hooks"`
}

// extractJSONArray finds the first array-shaped JSON substring in
// free-form provider output. Models wrap answers in prose and code
// fences no matter how firmly the prompt forbids it.
func extractJSONArray(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty response")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "[")
	if start < 0 {
		return "", errors.New("no JSON array in response")
	}

	// Balanced-bracket scan from the first '[', ignoring brackets
	// inside string literals.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(t); i++ {
		c := t[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return t[start : i+1], nil
			}
		}
	}
	return "", errors.New("unbalanced JSON array in response")
}

// parseChapterResponse turns raw provider text into validated
// chapters. Malformed entries are dropped individually; the batch only
// fails when nothing survives.
func parseChapterResponse(raw string, totalDuration float64) ([]types.Chapter, error) {
	arr, err := extractJSONArray(raw)
	if err != nil {
		return nil, err
	}
	var items []aiChapterItem
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return nil, err
	}

	var chapters []types.Chapter
	for _, it := range items {
		end := it.End
		if totalDuration > 0 && end > totalDuration {
			end = totalDuration
		}
		if it.Start < 0 || end <= it.Start {
			continue
		}
		if end-it.Start < 30 {
			continue
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			title = "Untitled Chapter"
		}
		conf := it.Confidence
		if conf <= 0 || conf > 1 {
			conf = 0.8
		}
		chapters = append(chapters, types.Chapter{
			Title:      title,
			Start:      it.Start,
			End:        end,
			Duration:   end - it.Start,
			Summary:    strings.TrimSpace(it.Summary),
			Confidence: conf,
			Keywords:   it.Keywords,
			Hooks:      it.Hooks,
		})
	}
	if len(chapters) == 0 {
		return nil, errors.New("no valid chapters in response")
	}
	return chapters, nil
}
