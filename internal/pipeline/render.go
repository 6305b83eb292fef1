package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clipforge/clipd/internal/job"
	"github.com/clipforge/clipd/internal/ports"
	"github.com/clipforge/clipd/internal/reframe"
	"github.com/clipforge/clipd/internal/subtitles"
	"github.com/clipforge/clipd/internal/types"
)

// renderState carries layout decisions across the chapters of one job
// so the layout hysteresis has something to hold on to when a chapter
// shows no faces at all.
type renderState struct {
	layout    reframe.Layout
	top       reframe.Box
	bottom    reframe.Box
	haveSplit bool
}

// render produces one vertical clip per selected chapter. With no
// explicit selection every chapter renders. A failed chapter is
// skipped and logged; the stage errors only when nothing rendered.
func (p *Pipeline) render(ctx context.Context, j *job.Job) error {
	chapters := j.SelectedChapterList()
	if len(chapters) == 0 {
		chapters = j.Chapters
	}
	if len(chapters) == 0 {
		return errors.New("no chapters to render")
	}

	clipsDir, err := mkdirClips(p.deps.Store.Dir(j.ID))
	if err != nil {
		return err
	}

	cfg := p.renderConfig(j)

	var (
		clips    []types.Clip
		firstErr error
		state    renderState
	)
	for i, ch := range chapters {
		clip, err := p.renderChapter(ctx, j, ch, clipsDir, &state, cfg)
		if err != nil {
			rerr := &job.RenderError{ChapterID: ch.ID, Err: err}
			if firstErr == nil {
				firstErr = rerr
			}
			p.deps.Store.AppendLog(j.ID, fmt.Sprintf("render %s failed: %v", ch.ID, err))
			p.log.Warn("chapter render failed", "job", j.ID, "chapter", ch.ID, "err", err)
		} else {
			clips = append(clips, clip)
			p.deps.Store.AppendLog(j.ID, fmt.Sprintf("rendered %s (%s)", clip.Filename, state.layout))
		}
		j.SetProgress((i + 1) * 100 / len(chapters))
		p.persist(j)
	}

	if len(clips) == 0 {
		return fmt.Errorf("all %d renders failed: %w", len(chapters), firstErr)
	}
	j.Clips = clips
	return p.deps.Store.WriteClips(j.ID, clips)
}

// renderConfig applies the job's per-selection overrides on top of the
// pipeline defaults.
func (p *Pipeline) renderConfig(j *job.Job) Config {
	cfg := p.cfg
	ro := j.RenderOptions
	if ro == nil {
		return cfg
	}
	if ro.BurnSubtitles != nil {
		cfg.BurnSubtitles = *ro.BurnSubtitles
	}
	if ro.OutWidth > 0 && ro.OutHeight > 0 {
		cfg.OutWidth = ro.OutWidth
		cfg.OutHeight = ro.OutHeight
	}
	if ro.TranslateTo != "" {
		cfg.TranslateTo = ro.TranslateTo
	}
	return cfg
}

func (p *Pipeline) renderChapter(
	ctx context.Context,
	j *job.Job,
	ch types.Chapter,
	clipsDir string,
	state *renderState,
	cfg Config,
) (types.Clip, error) {
	layout, faces := p.decideLayout(ctx, j, ch, state.layout)

	spec := ports.EncodeSpec{
		Input:  j.VideoPath,
		Output: filepath.Join(clipsDir, "clip_"+ch.ID+".mp4"),
		Start:  ch.Start,
		End:    ch.End,
		Width:  cfg.OutWidth,
		Height: cfg.OutHeight,
	}

	switch {
	case layout == reframe.LayoutSplit && len(faces) >= 2:
		spec.TopCrop, spec.BottomCrop = p.splitCrops(j, faces, cfg)
		state.top, state.bottom = spec.TopCrop, spec.BottomCrop
		state.haveSplit = true
	case layout == reframe.LayoutSplit && state.haveSplit:
		// hysteresis kept the split through a faceless chapter; reuse
		// the last band placement instead of downgrading
		spec.TopCrop, spec.BottomCrop = state.top, state.bottom
	case layout == reframe.LayoutSplit:
		layout = reframe.LayoutSingle
		spec.Crop = p.trackCrop(ctx, j, ch, cfg)
	default:
		spec.Crop = p.trackCrop(ctx, j, ch, cfg)
	}
	spec.Layout = layout
	state.layout = layout

	subPath, err := p.clipSubtitles(ctx, j, ch, clipsDir, cfg)
	if err != nil {
		return types.Clip{}, err
	}
	if cfg.BurnSubtitles {
		spec.Subtitles = subPath
	}

	if err := p.deps.Encoder.RenderClip(ctx, spec); err != nil {
		return types.Clip{}, err
	}

	clip := types.Clip{
		Filename: filepath.Base(spec.Output),
		Title:    ch.Title,
		Start:    ch.Start,
		End:      ch.End,
		Duration: ch.End - ch.Start,
		Score:    ch.ViralScore,
		Formats:  map[string]string{"vertical": filepath.Base(spec.Output)},
	}
	if subPath != "" {
		clip.Subtitles = filepath.Base(subPath)
	}

	// Thumbnails are cosmetic; a grab failure never fails the chapter.
	thumbPath := filepath.Join(clipsDir, "clip_"+ch.ID+".jpg")
	mid := ch.Start + (ch.End-ch.Start)/2
	if err := p.deps.Encoder.Thumbnail(ctx, j.VideoPath, mid, thumbPath); err != nil {
		p.log.Warn("thumbnail failed", "job", j.ID, "chapter", ch.ID, "err", err)
	} else {
		clip.Thumbnail = filepath.Base(thumbPath)
	}

	return clip, nil
}

// clipSubtitles writes the chapter's SRT artifact when burn-in or
// translation asks for one. With a target language configured the cue
// text goes through the completion provider first and lands in a
// language-suffixed file; if translation is unavailable the artifact
// falls back to the source-language SRT.
func (p *Pipeline) clipSubtitles(
	ctx context.Context,
	j *job.Job,
	ch types.Chapter,
	clipsDir string,
	cfg Config,
) (string, error) {
	if !cfg.BurnSubtitles && cfg.TranslateTo == "" {
		return "", nil
	}

	segs := clipSegments(j.Segments, ch)
	name := "clip_" + ch.ID + ".srt"
	if cfg.TranslateTo != "" {
		translated, err := subtitles.Translate(ctx, p.deps.Translator, segs, cfg.TranslateTo)
		if err != nil {
			p.deps.Store.AppendLog(j.ID, fmt.Sprintf(
				"translation to %s unavailable for %s, keeping source language", cfg.TranslateTo, ch.ID))
			p.log.Warn("translation unavailable",
				"job", j.ID, "chapter", ch.ID, "lang", cfg.TranslateTo, "err", err)
		} else {
			segs = translated
			name = "clip_" + ch.ID + "." + cfg.TranslateTo + ".srt"
		}
	}

	path := filepath.Join(clipsDir, name)
	if err := p.writeClipSubtitles(path, segs, ch); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	return path, nil
}

// clipSegments returns the transcript segments overlapping the chapter.
func clipSegments(segs []types.Segment, ch types.Chapter) []types.Segment {
	var out []types.Segment
	for _, s := range segs {
		if s.End > ch.Start && s.Start < ch.End {
			out = append(out, s)
		}
	}
	return out
}

// decideLayout samples face counts at the quarter points of the
// chapter and maps the maximum to a layout. It also returns the faces
// from the densest sample for split-crop placement.
func (p *Pipeline) decideLayout(
	ctx context.Context,
	j *job.Job,
	ch types.Chapter,
	previous reframe.Layout,
) (reframe.Layout, []reframe.Box) {
	if p.deps.Faces == nil {
		return reframe.SelectLayout(nil, previous), nil
	}

	var (
		counts []int
		best   []reframe.Box
	)
	for _, at := range reframe.SamplePoints(ch.Start, ch.End) {
		faces, err := p.deps.Faces.Detect(ctx, j.VideoPath, at)
		if err != nil {
			p.log.Warn("face probe failed", "job", j.ID, "at", at, "err", err)
			counts = append(counts, 0)
			continue
		}
		counts = append(counts, len(faces))
		if len(faces) > len(best) {
			best = faces
		}
	}
	return reframe.SelectLayout(counts, previous), best
}

// trackCrop walks the chapter at the detector interval, feeding each
// observation into the smoothing tracker, and returns the final crop.
// Without a detector this is a plain centered crop.
func (p *Pipeline) trackCrop(ctx context.Context, j *job.Job, ch types.Chapter, cfg Config) reframe.Box {
	tracker := reframe.NewTracker(j.Width, j.Height, cfg.aspect(), cfg.TrackerAlpha)
	if p.deps.Faces == nil {
		return tracker.Crop()
	}
	for at := ch.Start; at < ch.End; at += cfg.DetectorInterval {
		faces, err := p.deps.Faces.Detect(ctx, j.VideoPath, at)
		if err != nil {
			continue
		}
		tracker.Observe(faces)
	}
	return tracker.Crop()
}

// splitCrops places one crop per dominant face, top band for the
// leftmost face. Each band keeps the aspect of half the output frame.
func (p *Pipeline) splitCrops(j *job.Job, faces []reframe.Box, cfg Config) (reframe.Box, reframe.Box) {
	halfAspect := float64(cfg.OutWidth) / (float64(cfg.OutHeight) / 2)

	first, second := dominantPair(faces)
	fx, fy := first.Center()
	sx, sy := second.Center()
	if sx < fx {
		fx, fy, sx, sy = sx, sy, fx, fy
	}
	top := reframe.CropAround(j.Width, j.Height, halfAspect, fx, fy)
	bottom := reframe.CropAround(j.Width, j.Height, halfAspect, sx, sy)
	return top, bottom
}

// dominantPair returns the two largest boxes by area.
func dominantPair(faces []reframe.Box) (reframe.Box, reframe.Box) {
	first, second := faces[0], faces[1]
	if second.Area() > first.Area() {
		first, second = second, first
	}
	for _, f := range faces[2:] {
		switch {
		case f.Area() > first.Area():
			first, second = f, first
		case f.Area() > second.Area():
			second = f
		}
	}
	return first, second
}

func (p *Pipeline) writeClipSubtitles(path string, segs []types.Segment, ch types.Chapter) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return subtitles.WriteSRT(f, segs, ch.Start, ch.End)
}
