// Package analyzer turns a timed transcript into ranked,
// duration-bounded chapters and short-clip highlight candidates. It
// has two long-form strategies, AI-backed and fixed-width, and always
// degrades to the deterministic one instead of failing.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clipforge/clipd/internal/ports"
	"github.com/clipforge/clipd/internal/types"
)

// Detection methods reported alongside results.
const (
	MethodAI        = "ai"
	MethodRuleBased = "rule-based"
)

// Options tune both analysis modes. Zero values fall back to defaults.
type Options struct {
	// UseAI requests the AI strategy first; without a configured
	// provider it silently degrades to rule-based.
	UseAI bool
	// ShortClips switches analysis to highlight mode: scored segment
	// windows instead of long-form chapters. Always deterministic.
	ShortClips bool
	// MinDuration and MaxDuration bound chapter length in seconds.
	MinDuration float64
	MaxDuration float64
	// FixedWindow is the fallback slicing width in seconds.
	FixedWindow float64
	// TargetClipDuration is the highlight window length in seconds.
	TargetClipDuration float64
	// MaxHighlights caps short-clip candidates per analysis call.
	MaxHighlights int
}

func (o Options) withDefaults() Options {
	if o.MinDuration <= 0 {
		o.MinDuration = 30
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 180
	}
	if o.FixedWindow <= 0 {
		o.FixedWindow = 180
	}
	if o.TargetClipDuration <= 0 {
		o.TargetClipDuration = 30
	}
	if o.MaxHighlights <= 0 {
		o.MaxHighlights = 10
	}
	return o
}

// Result carries detected chapters plus the method that actually
// produced them.
type Result struct {
	Chapters []types.Chapter
	Method   string
}

// Analyzer is safe for concurrent use; it holds no per-call state.
type Analyzer struct {
	provider ports.TextCompleter
	log      *slog.Logger
}

// New builds an analyzer. Provider may be nil, which disables the AI
// path entirely.
func New(provider ports.TextCompleter, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{provider: provider, log: log}
}

// DetectChapters converts segments plus total duration into chapters.
// When AI is requested and configured it runs first; an empty result,
// parse failure, or provider error degrades deterministically to the
// fixed-width strategy. This path never returns an error.
func (a *Analyzer) DetectChapters(ctx context.Context, segs []types.Segment, duration float64, opts Options) Result {
	opts = opts.withDefaults()

	if opts.ShortClips {
		return Result{Chapters: Highlights(segs, duration, opts), Method: MethodRuleBased}
	}

	if opts.UseAI && a.provider != nil {
		chapters, err := a.aiChapters(ctx, segs, duration)
		if err == nil {
			return finishResult(chapters, MethodAI)
		}
		a.log.Warn("ai analysis degraded to rule-based",
			"provider", a.provider.Name(), "reason", err.Error())
	}

	return finishResult(FixedWidthChapters(segs, duration, opts), MethodRuleBased)
}

// finishResult assigns stable ids and viral scores. Both strategies
// share this so their outputs are field-compatible.
func finishResult(chapters []types.Chapter, method string) Result {
	for i := range chapters {
		chapters[i].ID = chapterID(i)
		chapters[i].ViralScore = ViralScore(chapters[i])
	}
	return Result{Chapters: chapters, Method: method}
}

func (a *Analyzer) aiChapters(ctx context.Context, segs []types.Segment, duration float64) ([]types.Chapter, error) {
	prompt := chaptersPrompt(segs, duration)
	raw, err := a.provider.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	return parseChapterResponse(raw, duration)
}

// maxPromptChars bounds the transcript we ship to a provider. Long
// podcasts overflow context windows; the head carries the structure.
const maxPromptChars = 12000

func chaptersPrompt(segs []types.Segment, duration float64) string {
	var b strings.Builder
	for _, s := range segs {
		line := fmt.Sprintf("[%.1f-%.1f] %s\n", s.Start, s.End, strings.TrimSpace(s.Text))
		if b.Len()+len(line) > maxPromptChars {
			break
		}
		b.WriteString(line)
	}

	return fmt.Sprintf(`Analyze this timed video transcription and extract the most engaging chapters.

Video duration: %.0f seconds.

Transcription:
%s
Return a JSON array of chapters with this structure:
[
  {
    "title": "Engaging title",
    "start": 0.0,
    "end": 45.0,
    "summary": "Brief summary",
    "confidence": 0.85,
    "keywords": ["keyword"],
    "hooks": ["Hook 1", "Hook 2"]
  }
]

Guidelines:
- Each chapter must be at least 30 seconds long
- Focus on self-contained, interesting segments
- Include viral-worthy hooks if possible
- Start and end at natural sentence boundaries
- Timestamps are in seconds and must not exceed the video duration
- Return only the JSON array, no prose and no code fences`, duration, b.String())
}
