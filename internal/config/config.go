// Package config loads clipd settings from an optional TOML file with
// environment overrides. Values are resolved once at startup; the
// resulting Config is never mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// DataDir is the root under which the per-job directories live.
	DataDir string `toml:"data_dir"`

	Output   Output   `toml:"output"`
	Download Download `toml:"download"`
	Whisper  Whisper  `toml:"whisper"`
	Encode   Encode   `toml:"encode"`
	Faces    Faces    `toml:"faces"`
	AI       AI       `toml:"ai"`
	Analysis Analysis `toml:"analysis"`
	Log      Log      `toml:"log"`
}

type Output struct {
	Width         int  `toml:"width"`
	Height        int  `toml:"height"`
	BurnSubtitles bool `toml:"burn_subtitles"`
	// TranslateTo names the subtitle target language; empty keeps the
	// transcript language.
	TranslateTo string `toml:"translate_to"`
}

type Download struct {
	YtdlpPath      string `toml:"ytdlp_path"`
	Attempts       int    `toml:"attempts"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-attempt download timeout.
func (d Download) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

type Whisper struct {
	BinPath   string `toml:"bin_path"`
	ModelPath string `toml:"model_path"`
	Language  string `toml:"language"`
}

type Encode struct {
	CRF            int    `toml:"crf"`
	Preset         string `toml:"preset"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-clip encode timeout.
func (e Encode) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

type Faces struct {
	DetectorPath string  `toml:"detector_path"`
	FFmpegPath   string  `toml:"ffmpeg_path"`
	Interval     float64 `toml:"interval"`
	TrackerAlpha float64 `toml:"tracker_alpha"`
}

// AI selects the completion provider for chapter analysis. Provider is
// "groq", "cohere" or "" to disable the AI path.
type AI struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
}

type Analysis struct {
	// ShortClips switches from long-form chapters to scored highlight
	// windows.
	ShortClips    bool    `toml:"short_clips"`
	MinDuration   float64 `toml:"min_duration"`
	MaxDuration   float64 `toml:"max_duration"`
	FixedWindow   float64 `toml:"fixed_window"`
	TargetClip    float64 `toml:"target_clip"`
	MaxHighlights int     `toml:"max_highlights"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir: defaultDataDir(),
		Output: Output{
			Width:         1080,
			Height:        1920,
			BurnSubtitles: true,
		},
		Download: Download{
			Attempts:       3,
			TimeoutSeconds: 600,
		},
		Whisper: Whisper{
			BinPath: "whisper-cli",
		},
		Encode: Encode{
			CRF:            23,
			Preset:         "veryfast",
			TimeoutSeconds: 900,
		},
		Faces: Faces{
			Interval:     12,
			TrackerAlpha: 0.15,
		},
		Analysis: Analysis{
			MinDuration:   30,
			MaxDuration:   180,
			FixedWindow:   180,
			TargetClip:    30,
			MaxHighlights: 10,
		},
		Log: Log{Level: "info", Format: "console"},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clipd"
	}
	return filepath.Join(home, ".clipd")
}

// Load reads the TOML file at path on top of the defaults and then
// applies environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// defaults apply
		default:
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv maps CLIPD_* variables onto the config. Environment wins
// over the file so deployments can override without editing it.
func (c *Config) applyEnv() {
	setString(&c.DataDir, "CLIPD_DATA_DIR")
	setString(&c.Whisper.BinPath, "CLIPD_WHISPER_BIN")
	setString(&c.Whisper.ModelPath, "CLIPD_WHISPER_MODEL")
	setString(&c.Whisper.Language, "CLIPD_LANGUAGE")
	setString(&c.Download.YtdlpPath, "CLIPD_YTDLP_PATH")
	setString(&c.Faces.DetectorPath, "CLIPD_FACE_DETECTOR")
	setString(&c.AI.Provider, "CLIPD_AI_PROVIDER")
	setString(&c.AI.APIKey, "CLIPD_AI_API_KEY")
	setString(&c.AI.Model, "CLIPD_AI_MODEL")
	setString(&c.AI.BaseURL, "CLIPD_AI_BASE_URL")
	setString(&c.Log.Level, "CLIPD_LOG_LEVEL")
	setString(&c.Log.Format, "CLIPD_LOG_FORMAT")
	setString(&c.Output.TranslateTo, "CLIPD_TRANSLATE_TO")
	setBool(&c.Output.BurnSubtitles, "CLIPD_BURN_SUBTITLES")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is empty")
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("invalid output dimensions %dx%d", c.Output.Width, c.Output.Height)
	}
	if c.Analysis.MinDuration <= 0 || c.Analysis.MaxDuration < c.Analysis.MinDuration {
		return fmt.Errorf("invalid analysis durations min=%.0f max=%.0f",
			c.Analysis.MinDuration, c.Analysis.MaxDuration)
	}
	if c.Faces.TrackerAlpha < 0 || c.Faces.TrackerAlpha >= 1 {
		return fmt.Errorf("tracker_alpha %.2f outside [0,1)", c.Faces.TrackerAlpha)
	}
	switch c.AI.Provider {
	case "", "groq", "cohere":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
