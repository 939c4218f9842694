package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/clipsmith/clipsmith/internal/domain/assembly"
	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/types"
)

// Concatenate joins a batch of clips into one file at outPath.
//
// Clips that cannot be probed are dropped with a warning rather than
// aborting the whole join. Surviving clips vote on a target resolution;
// off-resolution clips are rescaled with aspect-preserving padding, and
// mixed audio topology is resolved by synthesizing silent tracks so the
// concat demuxer sees a uniform stream layout.
func (a *Adapter) Concatenate(ctx context.Context, clips []string, outPath string) (ports.ConcatResult, error) {
	var res ports.ConcatResult

	valid := make([]string, 0, len(clips))
	profiles := make([]types.MediaProfile, 0, len(clips))
	for _, clip := range clips {
		p, err := a.Probe(ctx, clip)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("dropping %s: %v", clip, err))
			continue
		}
		valid = append(valid, clip)
		profiles = append(profiles, p)
	}

	if len(valid) == 0 {
		return res, types.E(types.KindNoValidClips, "no usable clips among %d inputs", len(clips))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return res, err
	}

	if len(valid) == 1 {
		if err := copyFile(valid[0], outPath); err != nil {
			return res, err
		}
		res.Duration = profiles[0].Duration
		return res, nil
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(outPath), "concat-*")
	if err != nil {
		return res, err
	}
	defer os.RemoveAll(tmpDir)

	resolutions := make([]types.Resolution, len(profiles))
	hasAudio := make([]bool, len(profiles))
	for i, p := range profiles {
		resolutions[i] = types.Resolution{Width: p.Width, Height: p.Height}
		hasAudio[i] = p.HasAudio
	}
	target := assembly.ChooseTarget(profiles, a.cfg.DefaultResolution)
	topology, needSilence := assembly.AudioTopology(hasAudio)

	prepared := make([]string, len(valid))
	copy(prepared, valid)

	for i := range valid {
		if resolutions[i] == target {
			continue
		}
		dest := filepath.Join(tmpDir, fmt.Sprintf("conf-%03d.mp4", i))
		if err := a.conform(ctx, prepared[i], dest, target, hasAudio[i]); err != nil {
			return res, err
		}
		prepared[i] = dest
	}

	if topology == assembly.TopologyMixed {
		for _, i := range needSilence {
			dest := filepath.Join(tmpDir, fmt.Sprintf("aud-%03d.mp4", i))
			if err := a.addSilentAudio(ctx, prepared[i], dest, profiles[i].Duration); err != nil {
				return res, err
			}
			prepared[i] = dest
		}
	}

	listPath := filepath.Join(tmpDir, "clips.txt")
	if err := os.WriteFile(listPath, []byte(concatList(prepared)), 0o644); err != nil {
		return res, err
	}

	out := ffmpeg_go.KwArgs{
		"c:v":     a.cfg.VideoCodec,
		"r":       a.cfg.FrameRate,
		"pix_fmt": a.cfg.PixelFormat,
		"preset":  a.cfg.Preset,
		"crf":     a.cfg.CRF,
	}
	// Video-only inputs join video-only; audio opts apply only when the
	// topology carries an audio stream through.
	if topology.OutputHasAudio() {
		out["c:a"] = a.cfg.AudioCodec
		out["ar"] = a.cfg.AudioRate
		out["b:a"] = a.cfg.ConcatAudioBitrate
	}

	stream := ffmpeg_go.Input(listPath, ffmpeg_go.KwArgs{
		"f":    "concat",
		"safe": 0,
	}).Output(outPath, out)

	if err := a.runGraph(ctx, stream); err != nil {
		return res, types.Wrap(types.KindEncodeFailure, err, "concatenate %d clips", len(prepared))
	}

	final, err := a.Probe(ctx, outPath)
	if err != nil {
		return res, err
	}
	res.Duration = final.Duration
	return res, nil
}

// concatList renders a concat-demuxer file list. Absolute paths are
// used so the list's own location does not matter; single quotes in
// paths are escaped the way the demuxer expects.
func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}
