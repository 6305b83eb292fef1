// Package pipeline drives a job through its stages: download,
// transcribe, analyze, render. Stage boundaries are the only places
// job status changes, and every boundary is persisted before the next
// stage starts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clipforge/clipd/internal/analyzer"
	"github.com/clipforge/clipd/internal/job"
	"github.com/clipforge/clipd/internal/job/store"
	"github.com/clipforge/clipd/internal/ports"
	"github.com/clipforge/clipd/internal/textnorm"
	"github.com/clipforge/clipd/internal/types"
)

// Stage names, usable as RunOpts.StopAfter and RunOpts.SkipTo.
const (
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageAnalyze    = "analyze"
	StageRender     = "render"
)

// Deps are the collaborators a pipeline needs. Faces may be nil to
// disable detection-driven reframing, and Translator may be nil to
// keep subtitles in the source language.
type Deps struct {
	Store       *store.Store
	Downloader  ports.Downloader
	Transcriber ports.Transcriber
	Faces       ports.FaceDetector
	Encoder     ports.Encoder
	Analyzer    *analyzer.Analyzer
	Translator  ports.TextCompleter
	Log         *slog.Logger
}

// Config tunes output geometry and render behavior.
type Config struct {
	// OutWidth and OutHeight are the rendered clip dimensions.
	OutWidth  int
	OutHeight int
	// TrackerAlpha is the crop-center smoothing factor.
	TrackerAlpha float64
	// DetectorInterval is the seconds between face probes while
	// tracking across a chapter.
	DetectorInterval float64
	BurnSubtitles    bool
	// TranslateTo names the subtitle target language; empty keeps the
	// source language.
	TranslateTo string
	// LanguageHint forces the transcription language; empty means
	// auto-detect.
	LanguageHint string
	Analysis     analyzer.Options
}

func (c Config) withDefaults() Config {
	if c.OutWidth <= 0 {
		c.OutWidth = 1080
	}
	if c.OutHeight <= 0 {
		c.OutHeight = 1920
	}
	if c.DetectorInterval <= 0 {
		c.DetectorInterval = 12
	}
	return c
}

func (c Config) aspect() float64 {
	return float64(c.OutWidth) / float64(c.OutHeight)
}

// RunOpts select which slice of the stage sequence to execute.
// StopAfter ends the run once the named stage finishes; stopping after
// analysis parks the job at chapters_ready for interactive selection.
// SkipTo starts at the named stage and assumes earlier artifacts are
// already on the job.
type RunOpts struct {
	StopAfter string
	SkipTo    string
}

type stage struct {
	name   string
	status job.Status
	run    func(context.Context, *job.Job) error
}

type Pipeline struct {
	deps Deps
	cfg  Config
	log  *slog.Logger
}

func New(deps Deps, cfg Config) *Pipeline {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{deps: deps, cfg: cfg.withDefaults(), log: log}
}

// Run executes the stage sequence for the job. Stage names and status
// transitions are validated before anything is touched; a run that
// cannot legally start leaves the job exactly as it was. A stage
// execution error marks the job failed, persists it, and stops the
// run; state on disk always reflects how far the job got.
func (p *Pipeline) Run(ctx context.Context, j *job.Job, opts RunOpts) error {
	stages := []stage{
		{StageDownload, job.StatusDownloading, p.download},
		{StageTranscribe, job.StatusTranscribing, p.transcribe},
		{StageAnalyze, job.StatusAnalyzing, p.analyze},
		{StageRender, job.StatusProcessing, p.render},
	}

	start := 0
	if opts.SkipTo != "" {
		idx := stageIndex(stages, opts.SkipTo)
		if idx < 0 {
			return fmt.Errorf("unknown stage %q", opts.SkipTo)
		}
		start = idx
	}
	if opts.StopAfter != "" && stageIndex(stages, opts.StopAfter) < 0 {
		return fmt.Errorf("unknown stage %q", opts.StopAfter)
	}

	for _, st := range stages[start:] {
		// A status the stage cannot enter from means the caller picked
		// the wrong slice of the sequence. The job keeps its state.
		if err := j.Transition(st.status); err != nil {
			return fmt.Errorf("cannot start %s: %w", st.name, err)
		}
		p.persist(j)
		p.deps.Store.AppendLog(j.ID, st.name+" started")
		p.log.Info("stage started", "job", j.ID, "stage", st.name)

		if err := st.run(ctx, j); err != nil {
			p.deps.Store.AppendLog(j.ID, fmt.Sprintf("%s failed: %v", st.name, err))
			p.log.Error("stage failed", "job", j.ID, "stage", st.name, "err", err)
			return p.fail(j, err)
		}
		p.deps.Store.AppendLog(j.ID, st.name+" done")

		if st.name == opts.StopAfter {
			if st.name == StageAnalyze {
				if err := j.Transition(job.StatusChaptersReady); err != nil {
					return err
				}
			}
			p.persist(j)
			return nil
		}
		p.persist(j)
	}

	if err := j.Transition(job.StatusCompleted); err != nil {
		return err
	}
	p.persist(j)
	p.deps.Store.AppendLog(j.ID, fmt.Sprintf("completed with %d clips", len(j.Clips)))
	p.log.Info("job completed", "job", j.ID, "clips", len(j.Clips))
	return nil
}

func stageIndex(stages []stage, name string) int {
	for i, st := range stages {
		if st.name == name {
			return i
		}
	}
	return -1
}

func (p *Pipeline) fail(j *job.Job, err error) error {
	j.Fail(err.Error())
	p.persist(j)
	return err
}

// persist is best effort mid-run; a transient write failure must not
// kill a pipeline that is otherwise making progress.
func (p *Pipeline) persist(j *job.Job) {
	if err := p.deps.Store.Put(j); err != nil {
		p.log.Warn("persist job", "job", j.ID, "err", err)
	}
}

func (p *Pipeline) download(ctx context.Context, j *job.Job) error {
	dest := filepath.Join(p.deps.Store.Dir(j.ID), "source.mp4")
	if err := p.deps.Downloader.Download(ctx, j.URL, dest); err != nil {
		return err
	}
	// The file landed but may still be junk; an unprobeable download is
	// an acquisition failure, not a render one.
	info, err := p.deps.Encoder.Probe(ctx, dest)
	if err != nil {
		return &job.AcquisitionError{URL: j.URL, Attempts: 1, Err: err}
	}
	j.VideoPath = dest
	j.Duration = info.Duration
	j.Width = info.Width
	j.Height = info.Height
	j.SetProgress(100)
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, j *job.Job) error {
	hint := p.cfg.LanguageHint
	if hint == "" {
		hint = j.Language
	}
	tr, err := p.deps.Transcriber.Transcribe(ctx, j.VideoPath, hint)
	if err != nil {
		return err
	}
	if len(tr.Segments) == 0 {
		return &job.TranscriptionError{Err: fmt.Errorf("empty transcript for %s", j.VideoPath)}
	}
	for i := range tr.Segments {
		tr.Segments[i].Text = textnorm.Normalize(tr.Segments[i].Text)
	}
	j.Language = tr.Language
	j.Segments = tr.Segments
	j.SetProgress(100)
	return p.deps.Store.WriteSegments(j.ID, j.Segments)
}

func (p *Pipeline) analyze(ctx context.Context, j *job.Job) error {
	res := p.deps.Analyzer.DetectChapters(ctx, j.Segments, j.Duration, p.cfg.Analysis)
	if len(res.Chapters) == 0 {
		return fmt.Errorf("no chapters detected in %.0fs of content", j.Duration)
	}
	j.Chapters = res.Chapters
	j.DetectionMethod = res.Method
	j.SetProgress(100)

	if err := p.deps.Store.WriteChapters(j.ID, j.Chapters); err != nil {
		return err
	}
	return p.deps.Store.WriteMetadata(j.ID, types.Metadata{
		URL:             j.URL,
		Duration:        j.Duration,
		SegmentCount:    len(j.Segments),
		ChapterCount:    len(j.Chapters),
		DetectionMethod: j.DetectionMethod,
		Language:        j.Language,
	})
}

func mkdirClips(dir string) (string, error) {
	clipsDir := filepath.Join(dir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return "", fmt.Errorf("create clips dir: %w", err)
	}
	return clipsDir, nil
}
