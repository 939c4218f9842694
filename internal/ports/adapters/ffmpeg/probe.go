package ffmpeg

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/clipsmith/clipsmith/internal/types"
)

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   string `json:"duration"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeData struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// Probe inspects a media file and returns its technical profile. An
// absent audio stream is reported as HasAudio=false, not an error.
func (a *Adapter) Probe(ctx context.Context, path string) (types.MediaProfile, error) {
	if _, err := os.Stat(path); err != nil {
		return types.MediaProfile{}, types.Wrap(types.KindNotFound, err, "probe %s", path)
	}
	if err := ctx.Err(); err != nil {
		return types.MediaProfile{}, err
	}

	raw, err := ffmpeg_go.Probe(path)
	if err != nil {
		return types.MediaProfile{}, types.Wrap(types.KindCorruptFile, err, "probe %s", path)
	}
	return parseProbe(path, raw)
}

func parseProbe(path, raw string) (types.MediaProfile, error) {
	var data probeData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return types.MediaProfile{}, types.Wrap(types.KindCorruptFile, err, "parse probe output for %s", path)
	}

	var video *probeStream
	hasAudio := false
	for i := range data.Streams {
		switch data.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &data.Streams[i]
			}
		case "audio":
			hasAudio = true
		}
	}
	if video == nil {
		return types.MediaProfile{}, types.E(types.KindNoVideoStream, "no video stream in %s", path)
	}

	fps := parseFrameRate(video.RFrameRate)

	// Duration fallback chain: video stream, container format, then
	// frame count over frame rate.
	dur := parseSecondsField(video.Duration)
	if dur == 0 {
		dur = parseSecondsField(data.Format.Duration)
	}
	if dur == 0 && fps > 0 {
		if frames := parseSecondsField(video.NbFrames); frames > 0 {
			dur = frames / fps
		}
	}
	if dur == 0 {
		return types.MediaProfile{}, types.E(types.KindCorruptFile, "could not determine duration of %s", path)
	}

	return types.MediaProfile{
		Duration:  dur,
		Width:     video.Width,
		Height:    video.Height,
		FrameRate: fps,
		HasAudio:  hasAudio,
	}, nil
}

func parseSecondsField(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseFrameRate(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return parseSecondsField(s)
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
