package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/clipsmith/clipsmith/internal/types"
)

var cropLineRE = regexp.MustCompile(`crop=(\d+):(\d+):(\d+):(\d+)`)

// DetectCrop samples the head of a video with ffmpeg's cropdetect
// filter and returns a crop window when the file carries solid-color
// borders. Negligible letterboxing (crop covering >=98% of the frame
// with every border under 2px) returns nil so we do not crop noise.
// Callers treat a returned error as "no crop found": detection is a
// best-effort optimization, never a reason to fail the clip.
func (a *Adapter) DetectCrop(ctx context.Context, path string) (*types.CropRect, error) {
	profile, err := a.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	window := a.cfg.CropWindowSeconds
	if profile.Duration < window {
		window = profile.Duration
	}

	// The crop= lines are filter log output on stderr, not a produced
	// file, so this path shells out directly instead of going through
	// the graph builder.
	cmd := exec.CommandContext(ctx, a.cfg.FFmpegPath,
		"-hide_banner",
		"-t", fmtSeconds(window),
		"-i", path,
		"-vf", "cropdetect=24:16:0",
		"-f", "null", "-",
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("cropdetect %s: %w\n%s", path, err, truncate(string(b), 1000))
	}

	crop := parseCropLine(string(b))
	if crop == nil {
		return nil, nil
	}
	if negligibleCrop(*crop, profile.Width, profile.Height) {
		return nil, nil
	}
	return crop, nil
}

// parseCropLine extracts the last crop=W:H:X:Y occurrence from the
// cropdetect stderr log; the last line reflects the most settled
// detection over the sampled window.
func parseCropLine(stderr string) *types.CropRect {
	matches := cropLineRE.FindAllStringSubmatch(stderr, -1)
	if len(matches) == 0 {
		return nil
	}
	m := matches[len(matches)-1]
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, _ := strconv.Atoi(m[3])
	y, _ := strconv.Atoi(m[4])
	if w <= 0 || h <= 0 {
		return nil
	}
	return &types.CropRect{W: w, H: h, X: x, Y: y}
}

func negligibleCrop(c types.CropRect, origW, origH int) bool {
	if origW <= 0 || origH <= 0 {
		return true
	}
	ratio := float64(c.W*c.H) / float64(origW*origH)
	maxBorder := math.Max(
		math.Max(float64(c.X), float64(c.Y)),
		math.Max(float64(origW-(c.X+c.W)), float64(origH-(c.Y+c.H))),
	)
	return ratio >= 0.98 && maxBorder < 2
}
