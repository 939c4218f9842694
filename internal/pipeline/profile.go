package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the tunable half of a run: the codec standard every clip
// conforms to plus the planner's constraint knobs. Zero values mean
// "use the default"; a YAML file can override any subset.
type Profile struct {
	FrameRate    int    `yaml:"frame_rate"`
	PixelFormat  string `yaml:"pixel_format"`
	VideoCodec   string `yaml:"video_codec"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioRate    int    `yaml:"audio_rate"`
	AudioBitrate string `yaml:"audio_bitrate"`
	// ConcatAudioBitrate applies only to the final join.
	ConcatAudioBitrate string `yaml:"concat_audio_bitrate"`

	TargetWidth  int `yaml:"target_width"`
	TargetHeight int `yaml:"target_height"`

	MinClipSeconds          float64 `yaml:"min_clip_seconds"`
	TotalMarginFrac         float64 `yaml:"total_margin_frac"`
	TotalMarginFloorSeconds float64 `yaml:"total_margin_floor_seconds"`

	Concurrency int `yaml:"concurrency"`
}

func DefaultProfile() Profile {
	return Profile{
		FrameRate:               30,
		PixelFormat:             "yuv420p",
		VideoCodec:              "libx264",
		Preset:                  "medium",
		CRF:                     23,
		AudioCodec:              "aac",
		AudioRate:               48000,
		AudioBitrate:            "128k",
		ConcatAudioBitrate:      "192k",
		TargetWidth:             720,
		TargetHeight:            1280,
		MinClipSeconds:          3.0,
		TotalMarginFrac:         0.20,
		TotalMarginFloorSeconds: 3.0,
		Concurrency:             2,
	}
}

// LoadProfile reads a YAML profile over the defaults. An empty path
// returns the defaults unchanged.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, p.validate()
}

func (p Profile) validate() error {
	if p.FrameRate <= 0 {
		return fmt.Errorf("profile: frame_rate must be > 0")
	}
	if p.CRF < 0 || p.CRF > 51 {
		return fmt.Errorf("profile: crf must be in [0, 51]")
	}
	if p.TargetWidth <= 0 || p.TargetHeight <= 0 {
		return fmt.Errorf("profile: target resolution must be positive")
	}
	if p.MinClipSeconds <= 0 {
		return fmt.Errorf("profile: min_clip_seconds must be > 0")
	}
	if p.TotalMarginFrac < 0 {
		return fmt.Errorf("profile: total_margin_frac must be >= 0")
	}
	if p.Concurrency < 1 {
		return fmt.Errorf("profile: concurrency must be >= 1")
	}
	return nil
}
