// Package store persists jobs as artifact files inside a per-job
// directory. The artifact set (segments.json, chapters.json,
// clips.json, metadata.json, progress.log) doubles as the recovery
// contract: on restart, job state is reconstructed from which
// artifacts exist.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clipforge/clipd/internal/job"
	"github.com/clipforge/clipd/internal/types"
)

const (
	jobFile      = "job.json"
	segmentsFile = "segments.json"
	chaptersFile = "chapters.json"
	clipsFile    = "clips.json"
	metadataFile = "metadata.json"
	logFile      = "progress.log"
)

// Store is a file-backed job repository rooted at <root>/jobs/<id>/.
type Store struct {
	mu   sync.RWMutex
	root string
	jobs map[string]*job.Job
}

// Open creates the store root if needed and recovers any jobs left on
// disk by a previous process.
func Open(root string) (*Store, error) {
	s := &Store{
		root: filepath.Join(root, "jobs"),
		jobs: make(map[string]*job.Job),
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	if err := s.recover(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the directory owned by the given job.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.root, id)
}

// Create registers a new job and creates its directory.
func (s *Store) Create(j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return fmt.Errorf("job %s already exists", j.ID)
	}
	if err := os.MkdirAll(s.Dir(j.ID), 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}
	s.jobs[j.ID] = j
	return s.saveJob(j)
}

// Get returns the job with the given id.
func (s *Store) Get(id string) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, job.ErrNotFound
	}
	return j, nil
}

// List returns all jobs ordered by creation time, newest first.
func (s *Store) List() []*job.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

// Put persists the current state of the job record.
func (s *Store) Put(j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; !ok {
		return job.ErrNotFound
	}
	s.jobs[j.ID] = j
	return s.saveJob(j)
}

// Delete removes the job record and its entire owned directory,
// clips included.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return job.ErrNotFound
	}
	delete(s.jobs, id)
	return os.RemoveAll(s.Dir(id))
}

// WriteSegments persists the transcript segments artifact.
func (s *Store) WriteSegments(id string, segs []types.Segment) error {
	return writeJSON(filepath.Join(s.Dir(id), segmentsFile), segs)
}

// ReadSegments loads the transcript segments artifact.
func (s *Store) ReadSegments(id string) ([]types.Segment, error) {
	var segs []types.Segment
	err := readJSON(filepath.Join(s.Dir(id), segmentsFile), &segs)
	return segs, err
}

// WriteChapters persists the detected chapters artifact.
func (s *Store) WriteChapters(id string, chapters []types.Chapter) error {
	return writeJSON(filepath.Join(s.Dir(id), chaptersFile), chapters)
}

// ReadChapters loads the chapters artifact.
func (s *Store) ReadChapters(id string) ([]types.Chapter, error) {
	var chapters []types.Chapter
	err := readJSON(filepath.Join(s.Dir(id), chaptersFile), &chapters)
	return chapters, err
}

// WriteClips persists the rendered clips artifact.
func (s *Store) WriteClips(id string, clips []types.Clip) error {
	return writeJSON(filepath.Join(s.Dir(id), clipsFile), clips)
}

// ReadClips loads the clips artifact.
func (s *Store) ReadClips(id string) ([]types.Clip, error) {
	var clips []types.Clip
	err := readJSON(filepath.Join(s.Dir(id), clipsFile), &clips)
	return clips, err
}

// WriteMetadata persists the job summary artifact.
func (s *Store) WriteMetadata(id string, md types.Metadata) error {
	return writeJSON(filepath.Join(s.Dir(id), metadataFile), md)
}

// ReadMetadata loads the job summary artifact.
func (s *Store) ReadMetadata(id string) (types.Metadata, error) {
	var md types.Metadata
	err := readJSON(filepath.Join(s.Dir(id), metadataFile), &md)
	return md, err
}

// AppendLog appends one timestamped human-readable line to the job's
// progress log. Logging failures are swallowed; the log is advisory.
func (s *Store) AppendLog(id, message string) {
	path := filepath.Join(s.Dir(id), logFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	ts := time.Now().UTC().Format("15:04:05")
	fmt.Fprintf(f, "[%s] %s\n", ts, message)
}

// ReadLog returns the progress log lines, empty if none exist yet.
func (s *Store) ReadLog(id string) []string {
	b, err := os.ReadFile(filepath.Join(s.Dir(id), logFile))
	if err != nil {
		return nil
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// recover rebuilds the in-memory job map from the artifact layout.
// Jobs with an intact job.json carrying a known status are restored
// verbatim. Otherwise the artifact-presence heuristic applies:
// clips.json means completed, chapters.json without clips.json means
// chapters_ready, and anything else is treated as failed. Deliberately
// lossy but always available.
func (s *Store) recover() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("scan store root: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		j := &job.Job{}
		if err := readJSON(filepath.Join(s.Dir(id), jobFile), j); err == nil && j.ID == id && j.Status.Valid() {
			s.jobs[id] = j
			continue
		}
		s.jobs[id] = s.recoverFromArtifacts(id, entry)
	}
	return nil
}

func (s *Store) recoverFromArtifacts(id string, entry os.DirEntry) *job.Job {
	j := &job.Job{
		ID:       id,
		URL:      "unknown",
		Status:   job.StatusFailed,
		Error:    "state lost; reconstructed from artifacts",
		Metadata: map[string]any{},
	}
	if info, err := entry.Info(); err == nil {
		j.CreatedAt = info.ModTime().UTC()
		j.UpdatedAt = j.CreatedAt
	}
	if md, err := s.ReadMetadata(id); err == nil {
		j.URL = md.URL
		j.Duration = md.Duration
		j.Language = md.Language
		j.DetectionMethod = md.DetectionMethod
	}
	if clips, err := s.ReadClips(id); err == nil {
		j.Status = job.StatusCompleted
		j.Progress = 100
		j.Error = ""
		j.Clips = clips
		if chapters, err := s.ReadChapters(id); err == nil {
			j.Chapters = chapters
		}
		return j
	}
	if chapters, err := s.ReadChapters(id); err == nil {
		j.Status = job.StatusChaptersReady
		j.Progress = 60
		j.Error = ""
		j.Chapters = chapters
	}
	return j
}

func (s *Store) saveJob(j *job.Job) error {
	return writeJSON(filepath.Join(s.Dir(j.ID), jobFile), j)
}

// writeJSON writes via tmp file and rename so readers never observe a
// partially written artifact.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
