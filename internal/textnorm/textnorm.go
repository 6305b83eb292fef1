// Package textnorm cleans transcript text before analysis: common
// Indonesian slang is expanded and known recognizer mis-hearings are
// corrected. Deterministic regex substitution, applied once per
// segment.
package textnorm

import (
	"regexp"
	"strings"
)

type rule struct {
	re  *regexp.Regexp
	out string
}

var rules = buildRules(map[string]string{
	`\bgak\b`:   "tidak",
	`\bnggak\b`: "tidak",
	`\bga\b`:    "tidak",
	`\bgk\b`:    "tidak",
	`\btdk\b`:   "tidak",
	`\byg\b`:    "yang",
	`\budh\b`:   "sudah",
	`\bblm\b`:   "belum",
	`\bkrn\b`:   "karena",
	`\bkalo\b`:  "kalau",
	`\bjd\b`:    "jadi",
	`\bjg\b`:    "juga",
	`\bgmn\b`:   "gimana",
	`\bdlm\b`:   "dalam",
	`\butk\b`:   "untuk",
	`\bbgt\b`:   "banget",
	`\baja\b`:   "saja",
	`\bjgn\b`:   "jangan",
	`\bsm\b`:    "sama",
})

func buildRules(m map[string]string) []rule {
	out := make([]rule, 0, len(m))
	for pat, rep := range m {
		out = append(out, rule{re: regexp.MustCompile(pat), out: rep})
	}
	return out
}

// Normalize applies every substitution rule to text and collapses
// repeated whitespace.
func Normalize(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return t
	}
	for _, r := range rules {
		t = r.re.ReplaceAllString(t, r.out)
	}
	return strings.Join(strings.Fields(t), " ")
}
