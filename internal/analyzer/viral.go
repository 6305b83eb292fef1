package analyzer

import (
	"strings"

	"github.com/clipforge/clipd/internal/types"
)

// ViralScore estimates a chapter's short-form engagement potential on
// a 0-100 scale. Base 50, adjusted for duration band, hook count, a
// question in the summary, a punchy title, analyzer confidence, and
// viral-intent keywords in title+summary.
func ViralScore(ch types.Chapter) int {
	score := 50.0

	switch {
	case ch.Duration >= 30 && ch.Duration <= 60:
		score += 20
	case ch.Duration > 60 && ch.Duration <= 90:
		score += 10
	case ch.Duration < 20:
		score -= 20
	}

	if n := len(ch.Hooks); n > 0 {
		bonus := float64(n) * 5
		if bonus > 15 {
			bonus = 15
		}
		score += bonus
	}

	if strings.Contains(ch.Summary, "?") {
		score += 5
	}
	if len(strings.Fields(ch.Title)) <= 5 {
		score += 5
	}
	score += ch.Confidence * 20

	text := strings.ToLower(ch.Title + " " + ch.Summary)
	for _, kw := range viralKeywords {
		if strings.Contains(text, kw) {
			score += 2
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}
