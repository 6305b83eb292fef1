// Package ffmpeg implements the encoder port on top of ffmpeg-go.
// Streams are compiled to a command and re-run under the caller's
// context so encode timeouts actually kill the process.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/clipforge/clipd/internal/ports"
	"github.com/clipforge/clipd/internal/reframe"
	"github.com/clipforge/clipd/internal/types"
)

const subtitleStyle = "FontName=Arial Black,FontSize=48,Outline=3,Alignment=2"

type Adapter struct {
	crf     int
	preset  string
	timeout time.Duration
}

func New(crf int, preset string, timeout time.Duration) *Adapter {
	if crf <= 0 {
		crf = 23
	}
	if preset == "" {
		preset = "veryfast"
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Adapter{crf: crf, preset: preset, timeout: timeout}
}

// RenderClip trims, reframes and muxes one clip. A non-zero exit or
// timeout is fatal for this render and surfaces as a RenderError by
// the caller; nothing here retries.
func (a *Adapter) RenderClip(ctx context.Context, spec ports.EncodeSpec) error {
	in := ffmpeg_go.Input(spec.Input, ffmpeg_go.KwArgs{
		"ss": formatSeconds(spec.Start),
		"to": formatSeconds(spec.End),
	})

	var video *ffmpeg_go.Stream
	switch spec.Layout {
	case reframe.LayoutSplit:
		split := in.Video().Split()
		top := cropScale(split.Get("0"), spec.TopCrop, spec.Width, spec.Height/2)
		bottom := cropScale(split.Get("1"), spec.BottomCrop, spec.Width, spec.Height/2)
		video = ffmpeg_go.Filter([]*ffmpeg_go.Stream{top, bottom}, "vstack", ffmpeg_go.Args{})
	default:
		video = cropScale(in.Video(), spec.Crop, spec.Width, spec.Height)
	}

	if spec.Subtitles != "" {
		video = video.Filter("subtitles", ffmpeg_go.Args{escapeFilterPath(spec.Subtitles)},
			ffmpeg_go.KwArgs{"force_style": subtitleStyle})
	}

	out := ffmpeg_go.Output([]*ffmpeg_go.Stream{video, in.Audio()}, spec.Output, ffmpeg_go.KwArgs{
		"c:v":      "libx264",
		"preset":   a.preset,
		"crf":      strconv.Itoa(a.crf),
		"c:a":      "aac",
		"b:a":      "128k",
		"movflags": "+faststart",
	}).OverWriteOutput()

	return a.run(ctx, out)
}

// Thumbnail grabs a single scaled frame at the given timestamp.
func (a *Adapter) Thumbnail(ctx context.Context, input string, at float64, output string) error {
	out := ffmpeg_go.Input(input, ffmpeg_go.KwArgs{"ss": formatSeconds(at)}).
		Output(output, ffmpeg_go.KwArgs{
			"vframes": "1",
			"vf":      "scale=360:-1",
		}).OverWriteOutput()
	return a.run(ctx, out)
}

// Probe reads duration and frame geometry for a media file.
func (a *Adapter) Probe(ctx context.Context, path string) (types.VideoInfo, error) {
	raw, err := ffmpeg_go.Probe(path)
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var data struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return types.VideoInfo{}, fmt.Errorf("parse probe output: %w", err)
	}
	info := types.VideoInfo{Path: path}
	info.Duration, _ = strconv.ParseFloat(data.Format.Duration, 64)
	for _, s := range data.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}
	return info, nil
}

// run compiles the stream graph and re-executes it under ctx plus the
// encode timeout. ffmpeg-go's own Run has no context support.
func (a *Adapter) run(ctx context.Context, stream *ffmpeg_go.Stream) error {
	compiled := stream.Compile()

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, compiled.Path, compiled.Args[1:]...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg timeout after %s", a.timeout)
		}
		return fmt.Errorf("ffmpeg: %w\n%s", err, tail(string(b), 400))
	}
	return nil
}

func cropScale(s *ffmpeg_go.Stream, crop reframe.Box, outW, outH int) *ffmpeg_go.Stream {
	return s.
		Filter("crop", ffmpeg_go.Args{fmt.Sprintf("%d:%d:%d:%d",
			int(crop.W), int(crop.H), int(crop.X), int(crop.Y))}).
		Filter("scale", ffmpeg_go.Args{fmt.Sprintf("%d:%d", outW, outH)})
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

var _ ports.Encoder = (*Adapter)(nil)
