// Package worker is the service surface over the store and pipeline.
// It enforces at-most-one execution per job with a file lock on the
// job directory, so a second process on the same host cannot double
// process a job.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/clipforge/clipd/internal/job"
	"github.com/clipforge/clipd/internal/job/store"
	"github.com/clipforge/clipd/internal/pipeline"
)

type Service struct {
	store *store.Store
	pipe  *pipeline.Pipeline
	log   *slog.Logger
}

func New(st *store.Store, pipe *pipeline.Pipeline, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: st, pipe: pipe, log: log}
}

// Submit validates the source URL and registers a pending job. Nothing
// runs until Process is called.
func (s *Service) Submit(rawURL string) (*job.Job, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	j := job.New(rawURL)
	if err := s.store.Create(j); err != nil {
		return nil, err
	}
	s.log.Info("job submitted", "job", j.ID, "url", rawURL)
	return j, nil
}

// Process runs the pipeline for the job under its directory lock.
// TwoPhase stops after analysis at chapters_ready; otherwise the run
// goes straight through to completed.
func (s *Service) Process(ctx context.Context, id string, twoPhase bool) error {
	j, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if j.Status != job.StatusPending {
		return &job.ValidationError{Reason: fmt.Sprintf("job %s is %s, want pending", id, j.Status)}
	}

	opts := pipeline.RunOpts{}
	if twoPhase {
		opts.StopAfter = pipeline.StageAnalyze
	}
	return s.locked(id, func() error {
		return s.pipe.Run(ctx, j, opts)
	})
}

// ProcessPending drains every pending job, oldest first. A job that
// fails or is busy is logged and skipped; the drain itself only stops
// on cancellation.
func (s *Service) ProcessPending(ctx context.Context, twoPhase bool) error {
	jobs := s.store.List()
	for i := len(jobs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		j := jobs[i]
		if j.Status != job.StatusPending {
			continue
		}
		if err := s.Process(ctx, j.ID, twoPhase); err != nil {
			s.log.Warn("pending job not processed", "job", j.ID, "err", err)
		}
	}
	return nil
}

// Select marks chapters for rendering on a job paused at
// chapters_ready, optionally with per-selection render overrides.
// Unknown ids, an empty set or bad overrides reject the request with
// the job untouched.
func (s *Service) Select(id string, chapterIDs []string, opts *job.RenderOptions) error {
	j, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if j.Status != job.StatusChaptersReady {
		return &job.ValidationError{Reason: fmt.Sprintf("job %s is %s, want %s", id, j.Status, job.StatusChaptersReady)}
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if err := j.SelectChapters(chapterIDs); err != nil {
		return err
	}
	j.RenderOptions = opts
	return s.store.Put(j)
}

// Resume renders the selected chapters of a chapters_ready job.
func (s *Service) Resume(ctx context.Context, id string) error {
	j, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if j.Status != job.StatusChaptersReady {
		return &job.ValidationError{Reason: fmt.Sprintf("job %s is %s, want %s", id, j.Status, job.StatusChaptersReady)}
	}
	if len(j.SelectedChapters) == 0 {
		return &job.ValidationError{Reason: "no chapters selected"}
	}
	return s.locked(id, func() error {
		return s.pipe.Run(ctx, j, pipeline.RunOpts{SkipTo: pipeline.StageRender})
	})
}

// Get returns the job record.
func (s *Service) Get(id string) (*job.Job, error) { return s.store.Get(id) }

// List returns all jobs, newest first.
func (s *Service) List() []*job.Job { return s.store.List() }

// Logs returns the job's progress log lines.
func (s *Service) Logs(id string) ([]string, error) {
	if _, err := s.store.Get(id); err != nil {
		return nil, err
	}
	return s.store.ReadLog(id), nil
}

// Delete removes the job and all its artifacts. A running job cannot
// be deleted; its lock holder wins.
func (s *Service) Delete(id string) error {
	if _, err := s.store.Get(id); err != nil {
		return err
	}
	return s.locked(id, func() error {
		return s.store.Delete(id)
	})
}

// locked runs fn while holding the job directory lock. An already held
// lock means another worker owns the job right now.
func (s *Service) locked(id string, fn func() error) error {
	fl := flock.New(filepath.Join(s.store.Dir(id), ".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("lock job %s: %w", id, err)
	}
	if !ok {
		return job.ErrBusy
	}
	defer fl.Unlock()
	return fn()
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &job.ValidationError{Reason: fmt.Sprintf("parse url: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &job.ValidationError{Reason: fmt.Sprintf("unsupported url scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &job.ValidationError{Reason: "url has no host"}
	}
	return nil
}
