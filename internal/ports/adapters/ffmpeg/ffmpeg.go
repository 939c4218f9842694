package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/types"
)

var _ ports.MediaTool = (*Adapter)(nil)

// Config is the pipeline's standard codec profile. Every extracted and
// concatenated file conforms to it.
type Config struct {
	FFmpegPath string

	FrameRate    int
	PixelFormat  string
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioRate    int
	AudioBitrate string
	ConcatAudioBitrate string

	// DefaultResolution is used when no clip in a batch can be probed
	// for the resolution vote. 9:16 vertical by default.
	DefaultResolution types.Resolution

	// CropWindowSeconds bounds how much of a file the letterbox
	// detector samples.
	CropWindowSeconds float64
}

func DefaultConfig() Config {
	return Config{
		FFmpegPath:         "ffmpeg",
		FrameRate:          30,
		PixelFormat:        "yuv420p",
		VideoCodec:         "libx264",
		Preset:             "medium",
		CRF:                23,
		AudioCodec:         "aac",
		AudioRate:          48000,
		AudioBitrate:       "128k",
		ConcatAudioBitrate: "192k",
		DefaultResolution:  types.Resolution{Width: 720, Height: 1280},
		CropWindowSeconds:  10,
	}
}

type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	def := DefaultConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.PixelFormat == "" {
		cfg.PixelFormat = def.PixelFormat
	}
	if cfg.VideoCodec == "" {
		cfg.VideoCodec = def.VideoCodec
	}
	if cfg.Preset == "" {
		cfg.Preset = def.Preset
	}
	if cfg.CRF <= 0 {
		cfg.CRF = def.CRF
	}
	if cfg.AudioCodec == "" {
		cfg.AudioCodec = def.AudioCodec
	}
	if cfg.AudioRate <= 0 {
		cfg.AudioRate = def.AudioRate
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = def.AudioBitrate
	}
	if cfg.ConcatAudioBitrate == "" {
		cfg.ConcatAudioBitrate = def.ConcatAudioBitrate
	}
	if cfg.DefaultResolution.Width <= 0 || cfg.DefaultResolution.Height <= 0 {
		cfg.DefaultResolution = def.DefaultResolution
	}
	if cfg.CropWindowSeconds <= 0 {
		cfg.CropWindowSeconds = def.CropWindowSeconds
	}
	return &Adapter{cfg: cfg}
}

// runGraph compiles an ffmpeg-go graph to argv and runs it under the
// caller's context. Encoder stderr is attached to the error verbatim:
// it is the only actionable signal for malformed inputs.
func (a *Adapter) runGraph(ctx context.Context, stream *ffmpeg_go.Stream) error {
	compiled := stream.OverWriteOutput().Compile()
	args := compiled.Args
	if len(args) == 0 {
		return fmt.Errorf("empty ffmpeg command")
	}
	cmd := exec.CommandContext(ctx, a.cfg.FFmpegPath, args[1:]...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\n%s", err, truncate(string(b), 4000))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
