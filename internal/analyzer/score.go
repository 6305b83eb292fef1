package analyzer

import (
	"sort"
	"strings"
)

// lexicon weights phrases that historically pull short-form viewers in.
// Mixed English/Indonesian because that is what the source channels
// speak. Matching is case-insensitive substring.
var lexicon = map[string]float64{
	// curiosity and how-to
	"how to":    2,
	"why":       1.5,
	"secret":    2,
	"trick":     1.5,
	"hack":      2,
	"mistake":   1.5,
	"never":     1,
	"always":    1,
	"important": 1.5,
	"remember":  1,
	"amazing":   1.5,
	"free":      1.5,
	"viral":     2,
	// Indonesian counterparts
	"gimana":  2,
	"caranya": 1.5,
	"kenapa":  1.5,
	"rahasia": 2,
	"ternyata": 1.5,
	"jangan":  1,
	"penting": 1.5,
	"gratis":  1.5,
	"banget":  0.5,
}

// viralKeywords feed the viral-potential score: +2 per keyword found
// in title+summary.
var viralKeywords = []string{
	"secret", "hack", "trick", "amazing", "unbelievable",
	"shocking", "incredible", "must see", "you won't",
	"finally", "discover", "learn", "how to",
}

// SegmentScore rates one transcript segment for short-clip potential.
// Weighted lexicon hits plus fixed bonuses: a question mark +2, an
// exclamation +1, a punchy 3-10 word phrase +1, and +1 when the
// segment is among the first five (cold opens clip well).
func SegmentScore(text string, index int) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	lower := strings.ToLower(t)

	var score float64
	for kw, weight := range lexicon {
		if strings.Contains(lower, kw) {
			score += weight
		}
	}
	if strings.Contains(t, "?") {
		score += 2
	}
	if strings.Contains(t, "!") {
		score += 1
	}
	if n := len(strings.Fields(t)); n >= 3 && n <= 10 {
		score += 1
	}
	if index < 5 {
		score += 1
	}
	return score
}

// matchedKeywords returns the lexicon entries found in text, for use
// as chapter keywords.
func matchedKeywords(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for kw := range lexicon {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	sort.Strings(out)
	return out
}
