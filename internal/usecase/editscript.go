package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/types"
)

// ParseEditScript decodes a pre-authored shot list: the caller already
// knows which file, offset, and length each scene uses, so no planning
// oracle is involved.
func ParseEditScript(data []byte) ([]types.Shot, error) {
	var shots []types.Shot
	if err := json.Unmarshal(data, &shots); err != nil {
		return nil, types.Wrap(types.KindInvalidInput, err, "parse edit script")
	}
	if len(shots) == 0 {
		return nil, types.E(types.KindInvalidInput, "edit script has no shots")
	}
	for i, s := range shots {
		if s.File == "" {
			return nil, types.E(types.KindInvalidInput, "shot %d has no file", i+1)
		}
		if s.StartInClip < 0 || s.Duration <= 0 {
			return nil, types.E(types.KindInvalidInput,
				"shot %d has invalid range (start %.2f, duration %.2f)", i+1, s.StartInClip, s.Duration)
		}
	}
	return shots, nil
}

type EditScriptInput struct {
	Shots []types.Shot
	// MediaDir is the library the shots' file names resolve against.
	MediaDir string
	// CaseSensitive switches the filename match; the default matches
	// case-insensitively.
	CaseSensitive bool
	ClipsDir      string
	OutputPath    string
	Concurrency   int
}

// Assemble materializes a pre-authored edit script: resolve each shot
// against the media library, extract its range, concatenate. Shots
// that cannot be resolved or extracted degrade to warnings.
func (u Usecase) Assemble(ctx context.Context, in EditScriptInput) (types.AssembleResult, error) {
	var res types.AssembleResult

	if len(in.Shots) == 0 {
		return res, types.E(types.KindInvalidInput, "no shots")
	}

	clipPaths := make([]string, len(in.Shots))
	clipWarns := make([]string, len(in.Shots))

	g, gctx := errgroup.WithContext(ctx)
	limit := in.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, shot := range in.Shots {
		g.Go(func() error {
			src, err := resolveClip(in.MediaDir, shot.File, in.CaseSensitive)
			if err != nil {
				clipWarns[i] = fmt.Sprintf("dropping shot %d: %v", i+1, err)
				return nil
			}

			crop, err := u.d.Media.DetectCrop(gctx, src)
			if err != nil {
				u.d.Logger.Warn("crop detection failed", zap.String("file", src), zap.Error(err))
				crop = nil
			}

			dest := filepath.Join(in.ClipsDir, fmt.Sprintf("shot_%03d.mp4", i+1))
			spec := ports.ExtractSpec{
				Source: src,
				Dest:   dest,
				Start:  shot.StartInClip,
				End:    shot.StartInClip + shot.Duration,
				Crop:   crop,
			}
			if err := u.d.Media.Extract(gctx, spec); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				clipWarns[i] = fmt.Sprintf("dropping shot %d (%s): %v", i+1, shot.File, err)
				return nil
			}
			clipPaths[i] = dest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	clips := make([]string, 0, len(clipPaths))
	for i, p := range clipPaths {
		if clipWarns[i] != "" {
			res.Warnings = append(res.Warnings, clipWarns[i])
		}
		if p != "" {
			clips = append(clips, p)
		}
	}

	concat, err := u.d.Media.Concatenate(ctx, clips, in.OutputPath)
	res.Warnings = append(res.Warnings, concat.Warnings...)
	if err != nil {
		return res, err
	}

	res.OutputPath = in.OutputPath
	res.Duration = concat.Duration
	return res, nil
}

// resolveClip matches a shot's file name against the media library by
// exact filename, case-insensitively unless asked otherwise.
func resolveClip(mediaDir, name string, caseSensitive bool) (string, error) {
	entries, err := os.ReadDir(mediaDir)
	if err != nil {
		return "", types.Wrap(types.KindNotFound, err, "read media library")
	}
	want := name
	if !caseSensitive {
		want = strings.ToLower(name)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		have := e.Name()
		if !caseSensitive {
			have = strings.ToLower(have)
		}
		if have == want {
			return filepath.Join(mediaDir, e.Name()), nil
		}
	}
	return "", types.E(types.KindNotFound, "no file named %q in %s", name, mediaDir)
}
