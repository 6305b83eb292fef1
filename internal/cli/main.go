// Package cli wires configuration, the store and the pipeline into
// the clipd command tree.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/clipforge/clipd/internal/analyzer"
	"github.com/clipforge/clipd/internal/config"
	"github.com/clipforge/clipd/internal/job/store"
	"github.com/clipforge/clipd/internal/logging"
	"github.com/clipforge/clipd/internal/pipeline"
	"github.com/clipforge/clipd/internal/ports"
	"github.com/clipforge/clipd/internal/ports/adapters/cohere"
	"github.com/clipforge/clipd/internal/ports/adapters/facedet"
	"github.com/clipforge/clipd/internal/ports/adapters/ffmpeg"
	"github.com/clipforge/clipd/internal/ports/adapters/groq"
	"github.com/clipforge/clipd/internal/ports/adapters/whispercpp"
	"github.com/clipforge/clipd/internal/ports/adapters/ytdlp"
	"github.com/clipforge/clipd/internal/worker"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:           "clipd",
		Short:         "Turn long videos into vertical highlight clips",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.PersistentFlags().String("config", "clipd.toml", "Config file path")

	root.AddCommand(
		newSubmitCmd(),
		newJobsCmd(),
		newShowCmd(),
		newSelectCmd(),
		newRenderCmd(),
		newWorkerCmd(),
		newLogsCmd(),
		newDeleteCmd(),
	)

	ctx, stop := signal.NotifyContext(root.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newService builds the full dependency graph from the config file the
// command points at.
func newService(cmd *cobra.Command) (*worker.Service, config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, config.Config{}, err
	}

	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, config.Config{}, err
	}

	var provider ports.TextCompleter
	switch cfg.AI.Provider {
	case "groq":
		provider = groq.New(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
	case "cohere":
		provider = cohere.New(cfg.AI.APIKey, cfg.AI.Model)
	}

	pipe := pipeline.New(pipeline.Deps{
		Store:       st,
		Downloader:  ytdlp.New(cfg.Download.YtdlpPath, cfg.Download.Attempts, cfg.Download.Timeout()),
		Transcriber: whispercpp.New(cfg.Whisper.BinPath, cfg.Whisper.ModelPath),
		Faces:       facedet.New(cfg.Faces.DetectorPath, cfg.Faces.FFmpegPath),
		Encoder:     ffmpeg.New(cfg.Encode.CRF, cfg.Encode.Preset, cfg.Encode.Timeout()),
		Analyzer:    analyzer.New(provider, log),
		Translator:  provider,
		Log:         log,
	}, pipeline.Config{
		OutWidth:         cfg.Output.Width,
		OutHeight:        cfg.Output.Height,
		TrackerAlpha:     cfg.Faces.TrackerAlpha,
		DetectorInterval: cfg.Faces.Interval,
		BurnSubtitles:    cfg.Output.BurnSubtitles,
		TranslateTo:      cfg.Output.TranslateTo,
		LanguageHint:     cfg.Whisper.Language,
		Analysis: analyzer.Options{
			UseAI:              provider != nil,
			ShortClips:         cfg.Analysis.ShortClips,
			MinDuration:        cfg.Analysis.MinDuration,
			MaxDuration:        cfg.Analysis.MaxDuration,
			FixedWindow:        cfg.Analysis.FixedWindow,
			TargetClipDuration: cfg.Analysis.TargetClip,
			MaxHighlights:      cfg.Analysis.MaxHighlights,
		},
	})

	return worker.New(st, pipe, log), cfg, nil
}
