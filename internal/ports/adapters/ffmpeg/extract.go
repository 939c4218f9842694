package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/types"
)

// Extract cuts one time range out of a source video into a new file
// conforming to the standard codec profile. The crop, when present, is
// applied before encoding. Dimensions are left alone; conforming to the
// batch target resolution happens at concatenation.
func (a *Adapter) Extract(ctx context.Context, spec ports.ExtractSpec) error {
	if _, err := os.Stat(spec.Source); err != nil {
		return types.Wrap(types.KindNotFound, err, "extract source %s", spec.Source)
	}
	if spec.End <= spec.Start {
		return types.E(types.KindInvalidRange,
			"extract %s: end %.2f must be after start %.2f", spec.Source, spec.End, spec.Start)
	}

	profile, err := a.Probe(ctx, spec.Source)
	if err != nil {
		return err
	}
	// Container metadata can round a hair short of the true length.
	if spec.End > profile.Duration+0.1 {
		return types.E(types.KindInvalidRange,
			"extract %s: end %.2f beyond source duration %.2f", spec.Source, spec.End, profile.Duration)
	}

	if err := os.MkdirAll(filepath.Dir(spec.Dest), 0o755); err != nil {
		return err
	}

	in := ffmpeg_go.Input(spec.Source, ffmpeg_go.KwArgs{
		"ss": fmtSeconds(spec.Start),
		"t":  fmtSeconds(spec.End - spec.Start),
	})
	video := in.Get("v")
	if spec.Crop != nil {
		video = video.Filter("crop", ffmpeg_go.Args{
			fmt.Sprintf("%d:%d:%d:%d", spec.Crop.W, spec.Crop.H, spec.Crop.X, spec.Crop.Y),
		})
	}

	out := ffmpeg_go.KwArgs{
		"c:v":     a.cfg.VideoCodec,
		"r":       a.cfg.FrameRate,
		"pix_fmt": a.cfg.PixelFormat,
		"preset":  a.cfg.Preset,
		"crf":     a.cfg.CRF,
	}

	var stream *ffmpeg_go.Stream
	if profile.HasAudio {
		out["c:a"] = a.cfg.AudioCodec
		out["ar"] = a.cfg.AudioRate
		out["b:a"] = a.cfg.AudioBitrate
		stream = ffmpeg_go.Output([]*ffmpeg_go.Stream{video, in.Get("a")}, spec.Dest, out)
	} else {
		stream = video.Output(spec.Dest, out)
	}

	if err := a.runGraph(ctx, stream); err != nil {
		return types.Wrap(types.KindEncodeFailure, err, "extract %s [%s, %s]",
			spec.Source, fmtSeconds(spec.Start), fmtSeconds(spec.End))
	}
	return nil
}

// addSilentAudio rewrites a video-only clip with a synthesized silent
// stereo track duration-matched to the video, copying the video stream
// untouched.
func (a *Adapter) addSilentAudio(ctx context.Context, src, dest string, durSeconds float64) error {
	video := ffmpeg_go.Input(src)
	silence := ffmpeg_go.Input(
		fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", a.cfg.AudioRate),
		ffmpeg_go.KwArgs{"f": "lavfi"},
	)
	stream := ffmpeg_go.Output(
		[]*ffmpeg_go.Stream{video.Get("v"), silence.Get("a")},
		dest,
		ffmpeg_go.KwArgs{
			"c:v": "copy",
			"c:a": a.cfg.AudioCodec,
			"ar":  a.cfg.AudioRate,
			"ac":  2,
			"t":   fmtSeconds(durSeconds),
		},
	)
	if err := a.runGraph(ctx, stream); err != nil {
		return types.Wrap(types.KindEncodeFailure, err, "add silent audio to %s", src)
	}
	return nil
}

// conform rescales a clip to the batch target resolution, preserving
// aspect ratio and padding the remainder with centered black bars.
func (a *Adapter) conform(ctx context.Context, src, dest string, target types.Resolution, hasAudio bool) error {
	in := ffmpeg_go.Input(src)
	video := in.Get("v").
		Filter("scale", ffmpeg_go.Args{
			fmt.Sprintf("%d:%d:force_original_aspect_ratio=decrease", target.Width, target.Height),
		}).
		Filter("pad", ffmpeg_go.Args{
			fmt.Sprintf("%d:%d:(ow-iw)/2:(oh-ih)/2", target.Width, target.Height),
		}, ffmpeg_go.KwArgs{"color": "black"})

	out := ffmpeg_go.KwArgs{
		"c:v":     a.cfg.VideoCodec,
		"r":       a.cfg.FrameRate,
		"pix_fmt": a.cfg.PixelFormat,
		"preset":  a.cfg.Preset,
		"crf":     a.cfg.CRF,
	}

	var stream *ffmpeg_go.Stream
	if hasAudio {
		out["c:a"] = "copy"
		stream = ffmpeg_go.Output([]*ffmpeg_go.Stream{video, in.Get("a")}, dest, out)
	} else {
		stream = video.Output(dest, out)
	}

	if err := a.runGraph(ctx, stream); err != nil {
		return types.Wrap(types.KindEncodeFailure, err, "conform %s to %dx%d", src, target.Width, target.Height)
	}
	return nil
}
