package worker

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipd/internal/analyzer"
	"github.com/clipforge/clipd/internal/job"
	"github.com/clipforge/clipd/internal/job/store"
	"github.com/clipforge/clipd/internal/pipeline"
	"github.com/clipforge/clipd/internal/types"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipe := pipeline.New(pipeline.Deps{
		Store:    st,
		Analyzer: analyzer.New(nil, log),
		Log:      log,
	}, pipeline.Config{})
	return New(st, pipe, log), st
}

func TestSubmit_ValidatesURL(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "example.com/watch"},
		{"file scheme", "file:///etc/passwd"},
		{"empty", ""},
		{"garbage", "://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(tt.url)
			var verr *job.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
	require.Empty(t, svc.List(), "rejected submits must not create jobs")
}

func TestSubmit_CreatesPendingJob(t *testing.T) {
	svc, st := newTestService(t)

	j, err := svc.Submit("https://example.com/watch?v=abc")
	require.NoError(t, err)
	require.Equal(t, job.StatusPending, j.Status)
	require.Len(t, j.ID, 8)
	require.DirExists(t, st.Dir(j.ID))
}

func TestProcess_RequiresPending(t *testing.T) {
	svc, st := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)
	require.NoError(t, j.Transition(job.StatusDownloading))
	require.NoError(t, st.Put(j))

	err = svc.Process(context.Background(), j.ID, false)
	var verr *job.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSelect_RequiresChaptersReady(t *testing.T) {
	svc, _ := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)

	err = svc.Select(j.ID, []string{"ch_1"}, nil)
	var verr *job.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, job.StatusPending, j.Status)
}

func TestSelect_UnknownChapterLeavesJobUntouched(t *testing.T) {
	svc, st := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)
	j.Chapters = []types.Chapter{{ID: "ch_1"}, {ID: "ch_2"}}
	j.Status = job.StatusChaptersReady
	require.NoError(t, st.Put(j))

	err = svc.Select(j.ID, []string{"ch_1", "ch_99"}, nil)
	var verr *job.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, job.StatusChaptersReady, j.Status)
	require.Empty(t, j.SelectedChapters)
}

func TestSelect_ThenResumeIsRequired(t *testing.T) {
	svc, st := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)
	j.Chapters = []types.Chapter{{ID: "ch_1", Start: 0, End: 45}}
	j.Status = job.StatusChaptersReady
	require.NoError(t, st.Put(j))

	// resume without a selection is rejected
	err = svc.Resume(context.Background(), j.ID)
	var verr *job.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, svc.Select(j.ID, []string{"ch_1"}, nil))
	got, err := svc.Get(j.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"ch_1"}, got.SelectedChapters)
}

func TestSelect_RenderOptionsPersist(t *testing.T) {
	svc, st := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)
	j.Chapters = []types.Chapter{{ID: "ch_1"}}
	j.Status = job.StatusChaptersReady
	require.NoError(t, st.Put(j))

	burn := false
	opts := &job.RenderOptions{OutWidth: 720, OutHeight: 1280, BurnSubtitles: &burn, TranslateTo: "en"}
	require.NoError(t, svc.Select(j.ID, []string{"ch_1"}, opts))

	got, err := svc.Get(j.ID)
	require.NoError(t, err)
	require.Equal(t, opts, got.RenderOptions)
}

func TestSelect_RejectsLopsidedDimensions(t *testing.T) {
	svc, st := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)
	j.Chapters = []types.Chapter{{ID: "ch_1"}}
	j.Status = job.StatusChaptersReady
	require.NoError(t, st.Put(j))

	err = svc.Select(j.ID, []string{"ch_1"}, &job.RenderOptions{OutWidth: 720})
	var verr *job.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, j.SelectedChapters)
	require.Nil(t, j.RenderOptions)
}

func TestDelete_UnknownJob(t *testing.T) {
	svc, _ := newTestService(t)
	require.ErrorIs(t, svc.Delete("nope"), job.ErrNotFound)
}

func TestDelete_BusyJobIsRefused(t *testing.T) {
	svc, st := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)

	fl := flock.New(filepath.Join(st.Dir(j.ID), ".lock"))
	locked, err := fl.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer fl.Unlock()

	require.ErrorIs(t, svc.Delete(j.ID), job.ErrBusy)
	_, err = svc.Get(j.ID)
	require.NoError(t, err, "busy job must survive the delete attempt")
}

func TestProcessPending_SkipsNonPending(t *testing.T) {
	svc, st := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)
	j.Status = job.StatusChaptersReady
	require.NoError(t, st.Put(j))

	require.NoError(t, svc.ProcessPending(context.Background(), false))
	require.Equal(t, job.StatusChaptersReady, j.Status)
}

func TestProcessPending_StopsOnCancellation(t *testing.T) {
	svc, _ := newTestService(t)

	j, err := svc.Submit("https://example.com/v")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.ProcessPending(ctx, false), context.Canceled)
	require.Equal(t, job.StatusPending, j.Status)
}

func TestLogs_UnknownJob(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Logs("nope")
	require.ErrorIs(t, err, job.ErrNotFound)
}
