package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clipforge/clipd/internal/types"
)

// dedupBucketSeconds groups candidate windows into 30-second buckets;
// at most one selected window per bucket.
const dedupBucketSeconds = 30

// leadInSeconds is how far each highlight window starts before the
// segment that scored it, so clips open with a beat of context.
const leadInSeconds = 2

// Highlights is the short-clip analysis mode: score every segment
// against the lexicon, then greedily take the best ones as fixed-width
// windows until the candidate budget is spent. Pure function of its
// inputs; identical segments and options always rank identically.
func Highlights(segs []types.Segment, duration float64, opts Options) []types.Chapter {
	opts = opts.withDefaults()
	if len(segs) == 0 || duration <= 0 {
		return nil
	}

	type scored struct {
		seg   types.Segment
		index int
		score float64
	}
	ranked := make([]scored, 0, len(segs))
	for i, s := range segs {
		ranked = append(ranked, scored{seg: s, index: i, score: SegmentScore(s.Text, i)})
	}
	sort.SliceStable(ranked, func(i, k int) bool {
		if ranked[i].score == ranked[k].score {
			return ranked[i].seg.Start < ranked[k].seg.Start
		}
		return ranked[i].score > ranked[k].score
	})

	taken := map[int]bool{}
	var out []types.Chapter
	for _, cand := range ranked {
		if len(out) >= opts.MaxHighlights {
			break
		}
		start := cand.seg.Start - leadInSeconds
		if start < 0 {
			start = 0
		}
		bucket := int(start) / dedupBucketSeconds
		if taken[bucket] {
			continue
		}
		taken[bucket] = true

		end := start + opts.TargetClipDuration
		if end > duration && duration > start {
			end = duration
		}
		text := strings.TrimSpace(cand.seg.Text)
		ch := types.Chapter{
			ID:         fmt.Sprintf("hl_%d", len(out)+1),
			Title:      TitleFromText(text),
			Start:      start,
			End:        end,
			Duration:   end - start,
			Summary:    text,
			Confidence: 0.7,
			Keywords:   matchedKeywords(text),
			Hooks:      ExtractHooks(text),
		}
		ch.ViralScore = ViralScore(ch)
		out = append(out, ch)
	}
	return out
}
