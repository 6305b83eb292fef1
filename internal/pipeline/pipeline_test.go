package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipd/internal/analyzer"
	"github.com/clipforge/clipd/internal/job"
	"github.com/clipforge/clipd/internal/job/store"
	"github.com/clipforge/clipd/internal/ports"
	"github.com/clipforge/clipd/internal/reframe"
	"github.com/clipforge/clipd/internal/types"
)

type fakeDownloader struct {
	err error
}

func (f *fakeDownloader) Download(ctx context.Context, url, dest string) error {
	return f.err
}

type fakeTranscriber struct {
	tr  types.Transcript
	err error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, mediaPath, hint string) (types.Transcript, error) {
	return f.tr, f.err
}

type fakeEncoder struct {
	rendered   []string
	specs      []ports.EncodeSpec
	failOutput string
	probeErr   error
}

func (f *fakeEncoder) RenderClip(ctx context.Context, spec ports.EncodeSpec) error {
	if f.failOutput != "" && strings.Contains(spec.Output, f.failOutput) {
		return errors.New("encoder exploded")
	}
	f.rendered = append(f.rendered, spec.Output)
	f.specs = append(f.specs, spec)
	return nil
}

func (f *fakeEncoder) Thumbnail(ctx context.Context, input string, at float64, output string) error {
	return nil
}

func (f *fakeEncoder) Probe(ctx context.Context, path string) (types.VideoInfo, error) {
	if f.probeErr != nil {
		return types.VideoInfo{}, f.probeErr
	}
	return types.VideoInfo{Path: path, Duration: 400, Width: 1920, Height: 1080}, nil
}

type fakeFaces struct {
	boxes func(at float64) []reframe.Box
}

func (f *fakeFaces) Detect(ctx context.Context, videoPath string, at float64) ([]reframe.Box, error) {
	return f.boxes(at), nil
}

type fakeTranslator struct {
	reply string
	err   error
}

func (f *fakeTranslator) Generate(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func (f *fakeTranslator) Name() string { return "fake" }

func testTranscript() types.Transcript {
	return types.Transcript{
		Language: "id",
		Segments: []types.Segment{
			{Start: 0, End: 5, Text: "selamat datang semua"},
			{Start: 190, End: 200, Text: "bagian tengah pembahasan"},
			{Start: 380, End: 390, Text: "penutup dan kesimpulan"},
		},
	}
}

func newTestPipeline(t *testing.T, dl ports.Downloader, tr ports.Transcriber, enc ports.Encoder) (*Pipeline, *store.Store, *job.Job) {
	t.Helper()
	return newCustomPipeline(t, Deps{Downloader: dl, Transcriber: tr, Encoder: enc}, Config{})
}

func newCustomPipeline(t *testing.T, deps Deps, cfg Config) (*Pipeline, *store.Store, *job.Job) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps.Store = st
	deps.Log = log
	if deps.Analyzer == nil {
		deps.Analyzer = analyzer.New(nil, log)
	}
	pipe := New(deps, cfg)

	j := job.New("https://example.com/v")
	require.NoError(t, st.Create(j))
	return pipe, st, j
}

func TestRun_SinglePhaseCompletes(t *testing.T) {
	enc := &fakeEncoder{}
	pipe, st, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, enc)

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{}))
	require.Equal(t, job.StatusCompleted, j.Status)
	require.Equal(t, 100, j.Progress)
	require.Equal(t, analyzer.MethodRuleBased, j.DetectionMethod)
	// geometry and duration come from probing the landed file
	require.Equal(t, float64(400), j.Duration)
	require.Equal(t, 1920, j.Width)
	require.Equal(t, 1080, j.Height)
	// 400s at the default 180s window gives three chapters, all rendered
	require.Len(t, j.Clips, 3)
	require.Len(t, enc.rendered, 3)

	segs, err := st.ReadSegments(j.ID)
	require.NoError(t, err)
	require.Len(t, segs, 3)

	clips, err := st.ReadClips(j.ID)
	require.NoError(t, err)
	require.Equal(t, j.Clips, clips)

	md, err := st.ReadMetadata(j.ID)
	require.NoError(t, err)
	require.Equal(t, j.URL, md.URL)
	require.Equal(t, 3, md.ChapterCount)
	require.Equal(t, "id", md.Language)
}

func TestRun_StopAfterAnalyzeParksAtChaptersReady(t *testing.T) {
	pipe, st, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, &fakeEncoder{})

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{StopAfter: StageAnalyze}))
	require.Equal(t, job.StatusChaptersReady, j.Status)
	require.NotEmpty(t, j.Chapters)
	require.Empty(t, j.Clips)

	chapters, err := st.ReadChapters(j.ID)
	require.NoError(t, err)
	require.Len(t, chapters, len(j.Chapters))
	_, err = st.ReadClips(j.ID)
	require.Error(t, err, "clips artifact must not exist before render")
}

func TestRun_ResumeRendersOnlySelection(t *testing.T) {
	enc := &fakeEncoder{}
	pipe, _, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, enc)

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{StopAfter: StageAnalyze}))
	require.NoError(t, j.SelectChapters([]string{j.Chapters[0].ID}))

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{SkipTo: StageRender}))
	require.Equal(t, job.StatusCompleted, j.Status)
	require.Len(t, j.Clips, 1)
	require.Contains(t, j.Clips[0].Filename, j.Chapters[0].ID)
}

func TestRun_DownloadFailureFailsJob(t *testing.T) {
	pipe, st, j := newTestPipeline(t,
		&fakeDownloader{err: &job.AcquisitionError{URL: "u", Attempts: 3, Err: errors.New("network down")}},
		&fakeTranscriber{}, &fakeEncoder{})

	err := pipe.Run(context.Background(), j, RunOpts{})
	require.Error(t, err)
	var aerr *job.AcquisitionError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, job.StatusFailed, j.Status)
	require.NotEmpty(t, j.Error)

	// failure state survived to disk
	reloaded, err := st.Get(j.ID)
	require.NoError(t, err)
	require.Equal(t, job.StatusFailed, reloaded.Status)
}

func TestRun_EmptyTranscriptFailsJob(t *testing.T) {
	pipe, _, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: types.Transcript{}}, &fakeEncoder{})

	err := pipe.Run(context.Background(), j, RunOpts{})
	require.Error(t, err)
	var terr *job.TranscriptionError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, job.StatusFailed, j.Status)
}

func TestRun_OneChapterRenderFailureIsIsolated(t *testing.T) {
	enc := &fakeEncoder{failOutput: "clip_ch_2"}
	pipe, _, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, enc)

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{}))
	require.Equal(t, job.StatusCompleted, j.Status)
	require.Len(t, j.Clips, 2)
	for _, c := range j.Clips {
		require.NotContains(t, c.Filename, "ch_2")
	}
}

func TestRun_AllRendersFailingFailsJob(t *testing.T) {
	enc := &fakeEncoder{failOutput: "clip_ch_"}
	pipe, _, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, enc)

	err := pipe.Run(context.Background(), j, RunOpts{})
	require.Error(t, err)
	var rerr *job.RenderError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, job.StatusFailed, j.Status)
}

func TestRun_UnknownStageNames(t *testing.T) {
	pipe, _, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, &fakeEncoder{})

	require.Error(t, pipe.Run(context.Background(), j, RunOpts{SkipTo: "bogus"}))
	require.Error(t, pipe.Run(context.Background(), j, RunOpts{StopAfter: "bogus"}))
	// neither touched the job
	require.Equal(t, job.StatusPending, j.Status)
}

func TestRun_MisstartedRunLeavesPausedJobIntact(t *testing.T) {
	pipe, st, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, &fakeEncoder{})

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{StopAfter: StageAnalyze}))
	require.Equal(t, job.StatusChaptersReady, j.Status)

	// running from the top on a paused job is a caller mistake, not a
	// job failure
	err := pipe.Run(context.Background(), j, RunOpts{})
	require.Error(t, err)
	require.Equal(t, job.StatusChaptersReady, j.Status)
	require.Empty(t, j.Error)

	reloaded, err := st.Get(j.ID)
	require.NoError(t, err)
	require.Equal(t, job.StatusChaptersReady, reloaded.Status)
}

func TestRun_UnprobeableDownloadFailsJob(t *testing.T) {
	enc := &fakeEncoder{probeErr: errors.New("moov atom not found")}
	pipe, _, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, enc)

	err := pipe.Run(context.Background(), j, RunOpts{})
	require.Error(t, err)
	var aerr *job.AcquisitionError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, job.StatusFailed, j.Status)
}

func TestRun_SplitLayoutSurvivesFacelessChapter(t *testing.T) {
	enc := &fakeEncoder{}
	// two speakers on screen for the first chapter, nobody after
	faces := &fakeFaces{boxes: func(at float64) []reframe.Box {
		if at < 180 {
			return []reframe.Box{
				{X: 100, Y: 100, W: 200, H: 200},
				{X: 1400, Y: 120, W: 210, H: 210},
			}
		}
		return nil
	}}
	pipe, _, j := newCustomPipeline(t, Deps{
		Downloader:  &fakeDownloader{},
		Transcriber: &fakeTranscriber{tr: testTranscript()},
		Faces:       faces,
		Encoder:     enc,
	}, Config{})

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{}))
	require.Len(t, enc.specs, 3)
	require.Equal(t, reframe.LayoutSplit, enc.specs[0].Layout)
	for _, spec := range enc.specs[1:] {
		require.Equal(t, reframe.LayoutSplit, spec.Layout)
		require.Equal(t, enc.specs[0].TopCrop, spec.TopCrop)
		require.Equal(t, enc.specs[0].BottomCrop, spec.BottomCrop)
	}
}

func TestRun_TranslatedSubtitleArtifact(t *testing.T) {
	enc := &fakeEncoder{}
	pipe, st, j := newCustomPipeline(t, Deps{
		Downloader:  &fakeDownloader{},
		Transcriber: &fakeTranscriber{tr: testTranscript()},
		Encoder:     enc,
		Translator:  &fakeTranslator{reply: "1. welcome everyone"},
	}, Config{BurnSubtitles: true, TranslateTo: "en"})

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{}))
	require.Equal(t, job.StatusCompleted, j.Status)
	require.Equal(t, "clip_ch_1.en.srt", j.Clips[0].Subtitles)
	require.True(t, strings.HasSuffix(enc.specs[0].Subtitles, ".en.srt"))

	b, err := os.ReadFile(filepath.Join(st.Dir(j.ID), "clips", "clip_ch_1.en.srt"))
	require.NoError(t, err)
	require.Contains(t, string(b), "welcome everyone")
}

func TestRun_TranslationUnavailableKeepsSourceLanguage(t *testing.T) {
	enc := &fakeEncoder{}
	pipe, st, j := newCustomPipeline(t, Deps{
		Downloader:  &fakeDownloader{},
		Transcriber: &fakeTranscriber{tr: testTranscript()},
		Encoder:     enc,
	}, Config{BurnSubtitles: true, TranslateTo: "en"})

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{}))
	require.Equal(t, job.StatusCompleted, j.Status)
	require.Equal(t, "clip_ch_1.srt", j.Clips[0].Subtitles)

	b, err := os.ReadFile(filepath.Join(st.Dir(j.ID), "clips", "clip_ch_1.srt"))
	require.NoError(t, err)
	require.Contains(t, string(b), "selamat datang semua")

	logText := strings.Join(st.ReadLog(j.ID), "\n")
	require.Contains(t, logText, "translation to en unavailable")
}

func TestRun_SelectionOverridesRenderConfig(t *testing.T) {
	enc := &fakeEncoder{}
	pipe, _, j := newCustomPipeline(t, Deps{
		Downloader:  &fakeDownloader{},
		Transcriber: &fakeTranscriber{tr: testTranscript()},
		Encoder:     enc,
	}, Config{BurnSubtitles: true})

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{StopAfter: StageAnalyze}))
	require.NoError(t, j.SelectChapters([]string{j.Chapters[0].ID}))
	noBurn := false
	j.RenderOptions = &job.RenderOptions{OutWidth: 720, OutHeight: 1280, BurnSubtitles: &noBurn}

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{SkipTo: StageRender}))
	require.Len(t, enc.specs, 1)
	require.Equal(t, 720, enc.specs[0].Width)
	require.Equal(t, 1280, enc.specs[0].Height)
	require.Empty(t, enc.specs[0].Subtitles)
	require.Empty(t, j.Clips[0].Subtitles)
}

func TestRun_ProgressLogRecordsStages(t *testing.T) {
	pipe, st, j := newTestPipeline(t, &fakeDownloader{}, &fakeTranscriber{tr: testTranscript()}, &fakeEncoder{})

	require.NoError(t, pipe.Run(context.Background(), j, RunOpts{}))
	logText := strings.Join(st.ReadLog(j.ID), "\n")
	for _, stage := range []string{StageDownload, StageTranscribe, StageAnalyze, StageRender} {
		require.Contains(t, logText, stage+" started")
		require.Contains(t, logText, stage+" done")
	}
}
