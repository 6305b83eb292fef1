package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/clipforge/clipd/internal/types"
)

// FixedWidthChapters slices the full duration into uniform windows.
// This is the deterministic fallback for long-form chapter detection:
// no model, no surprises. Titles come from the first segment inside
// each window, keywords from stopword-filtered frequency counting.
// The trailing window is clamped to the total duration and may fall
// below the configured minimum.
func FixedWidthChapters(segs []types.Segment, duration float64, opts Options) []types.Chapter {
	opts = opts.withDefaults()
	window := opts.FixedWindow
	if window < opts.MinDuration {
		window = opts.MinDuration
	}
	if window > opts.MaxDuration {
		window = opts.MaxDuration
	}
	if duration <= 0 {
		return nil
	}

	var chapters []types.Chapter
	for start := 0.0; start < duration; start += window {
		end := start + window
		if end > duration {
			end = duration
		}
		text := windowText(segs, start, end)
		ch := types.Chapter{
			Title:      TitleFromText(text),
			Start:      start,
			End:        end,
			Duration:   end - start,
			Summary:    summarize(text),
			Confidence: 0.6,
			Keywords:   Keywords(text, 5),
			Hooks:      ExtractHooks(text),
		}
		chapters = append(chapters, ch)
	}
	return chapters
}

// windowText joins the text of segments whose start falls inside
// [start, end).
func windowText(segs []types.Segment, start, end float64) string {
	var parts []string
	for _, s := range segs {
		if s.Start >= start && s.Start < end {
			if t := strings.TrimSpace(s.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}

// TitleFromText derives a short title from the first few meaningful
// words of text.
func TitleFromText(text string) string {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) > 6 {
		words = words[:6]
	}
	title := strings.Join(words, " ")
	title = strings.TrimRight(title, ".!?,:;")
	if title == "" {
		return "Untitled Segment"
	}
	r := []rune(title)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func summarize(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}

// stopwords filtered out of keyword counting, English plus Indonesian.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "you": true, "are": true, "was": true, "but": true,
	"not": true, "have": true, "what": true, "your": true, "from": true,
	"they": true, "will": true, "can": true, "all": true, "just": true,
	"yang": true, "dan": true, "ini": true, "itu": true, "ada": true,
	"untuk": true, "dengan": true, "tidak": true, "saya": true, "aku": true,
	"kamu": true, "kita": true, "juga": true, "saja": true, "sudah": true,
	"karena": true, "kalau": true, "pada": true, "dari": true, "dalam": true,
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Keywords returns the n most frequent non-stopword words of at least
// four characters, most frequent first. Frequency ties break
// alphabetically so output is deterministic.
func Keywords(text string, n int) []string {
	counts := map[string]int{}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len([]rune(w)) < 4 || stopwords[w] {
			continue
		}
		counts[w]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.SliceStable(words, func(i, k int) bool {
		if counts[words[i]] != counts[words[k]] {
			return counts[words[i]] > counts[words[k]]
		}
		return words[i] < words[k]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

var (
	questionRe    = regexp.MustCompile(`[^.!?]*\?`)
	exclamationRe = regexp.MustCompile(`[^.!?]*!`)
	viralPhraseRe = regexp.MustCompile(`(?i)(you (won't|will not) believe|the secret (of|about|is)|the truth (of|about|is)|wait|ternyata|rahasianya)[^.!?]*[.!?]?`)
)

// ExtractHooks pulls up to three attention-grabbing spans out of text:
// questions first, then exclamations, then known viral phrasings.
// Spans of ten characters or fewer are too thin to hook anyone.
func ExtractHooks(text string) []string {
	var hooks []string
	add := func(matches []string, limit int) {
		for i, m := range matches {
			if i >= limit {
				break
			}
			m = strings.TrimSpace(m)
			if len(m) > 10 {
				hooks = append(hooks, m)
			}
		}
	}
	add(questionRe.FindAllString(text, -1), 2)
	add(exclamationRe.FindAllString(text, -1), 2)
	add(viralPhraseRe.FindAllString(text, -1), 1)
	if len(hooks) > 3 {
		hooks = hooks[:3]
	}
	return hooks
}

// chapterID formats the stable id scheme for detected chapters.
func chapterID(i int) string { return fmt.Sprintf("ch_%d", i+1) }
