package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipd/internal/types"
)

// Job is the mutable record for one video from source URL to rendered
// clips. It is mutated exclusively by the currently executing pipeline
// stage; everyone else reads.
type Job struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`

	VideoPath string  `json:"video_path,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	Language  string  `json:"language,omitempty"`

	Segments []types.Segment `json:"segments,omitempty"`
	Chapters []types.Chapter `json:"chapters,omitempty"`
	Clips    []types.Clip    `json:"clips,omitempty"`

	SelectedChapters []string       `json:"selected_chapters,omitempty"`
	RenderOptions    *RenderOptions `json:"render_options,omitempty"`
	DetectionMethod  string         `json:"detection_method,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// RenderOptions are per-selection render overrides. Zero-valued fields
// keep the pipeline defaults; BurnSubtitles is a pointer so "off" can
// override an "on" default.
type RenderOptions struct {
	BurnSubtitles *bool  `json:"burn_subtitles,omitempty"`
	OutWidth      int    `json:"out_width,omitempty"`
	OutHeight     int    `json:"out_height,omitempty"`
	TranslateTo   string `json:"translate_to,omitempty"`
}

// Validate rejects override combinations the renderer cannot honor.
func (o *RenderOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.OutWidth < 0 || o.OutHeight < 0 {
		return &ValidationError{Reason: fmt.Sprintf("negative output dimensions %dx%d", o.OutWidth, o.OutHeight)}
	}
	if (o.OutWidth > 0) != (o.OutHeight > 0) {
		return &ValidationError{Reason: "output width and height must be overridden together"}
	}
	return nil
}

// New creates a pending job for the given source URL. IDs are short
// uuid prefixes; the full uuid buys nothing for a per-host job store.
func New(url string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString()[:8],
		URL:       url,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

// Transition moves the job to next if the transition table allows it.
// Progress resets at each stage boundary so per-stage monotonicity
// starts fresh.
func (j *Job) Transition(next Status) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("invalid transition %s -> %s", j.Status, next)
	}
	j.Status = next
	if next != StatusFailed {
		j.Progress = 0
	}
	if next == StatusCompleted {
		j.Progress = 100
	}
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// SetProgress records stage progress. Values below the current one are
// ignored: progress never regresses within a stage.
func (j *Job) SetProgress(pct int) {
	if pct < j.Progress {
		return
	}
	if pct > 100 {
		pct = 100
	}
	j.Progress = pct
	j.UpdatedAt = time.Now().UTC()
}

// Fail marks the job failed with a human-readable message. Failing a
// terminal job is a no-op so a late worker cannot clobber a completed
// record.
func (j *Job) Fail(msg string) {
	if j.Status.Terminal() {
		return
	}
	j.Status = StatusFailed
	j.Error = strings.TrimSpace(msg)
	j.UpdatedAt = time.Now().UTC()
}

// Chapter returns the chapter with the given id, if present.
func (j *Job) Chapter(id string) (types.Chapter, bool) {
	for _, ch := range j.Chapters {
		if ch.ID == id {
			return ch, true
		}
	}
	return types.Chapter{}, false
}

// SelectChapters validates the requested ids against the job's known
// chapters and marks them selected. It rejects empty and unknown sets
// before mutating anything.
func (j *Job) SelectChapters(ids []string) error {
	if len(ids) == 0 {
		return &ValidationError{Reason: "no chapters selected"}
	}
	var unknown []string
	for _, id := range ids {
		if _, ok := j.Chapter(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &ValidationError{Reason: "unknown chapter ids: " + strings.Join(unknown, ", ")}
	}
	sel := make(map[string]bool, len(ids))
	for _, id := range ids {
		sel[id] = true
	}
	for i := range j.Chapters {
		j.Chapters[i].Selected = sel[j.Chapters[i].ID]
	}
	j.SelectedChapters = append([]string(nil), ids...)
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// SelectedChapterList returns the chapters flagged for rendering, in
// chapter order.
func (j *Job) SelectedChapterList() []types.Chapter {
	var out []types.Chapter
	for _, ch := range j.Chapters {
		if ch.Selected {
			out = append(out, ch)
		}
	}
	return out
}
