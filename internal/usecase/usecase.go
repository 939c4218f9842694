package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/types"
)

type Deps struct {
	Media        ports.MediaTool
	Planner      ports.Planner
	Understander ports.Understander
	Logger       *zap.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return Usecase{d: d}
}

type Input struct {
	Script string
	// Assets is the ordered source catalog. Ignored when Timelines is
	// supplied.
	Assets []string
	// Timelines, when non-empty, skips the understanding stage.
	Timelines []types.AssetTimeline
	// ClipsDir receives the per-beat extracted clips.
	ClipsDir string
	// OutputPath is the final concatenated video.
	OutputPath string
	// Concurrency bounds parallel extraction. <=1 means sequential.
	Concurrency int
}

// Run drives one edit: understand the assets (unless timelines came
// in), plan beat-to-asset selections, extract the clips, concatenate.
// A rejected plan stops the run before any media work. Per-clip
// failures after planning degrade to warnings; the clip is dropped and
// the rest of the batch continues.
func (u Usecase) Run(ctx context.Context, in Input) (types.AssembleResult, error) {
	var res types.AssembleResult

	timelines, warns, err := u.buildTimelines(ctx, in)
	if err != nil {
		return res, err
	}
	res.Warnings = append(res.Warnings, warns...)

	selections, err := u.d.Planner.Plan(ctx, in.Script, timelines)
	if err != nil {
		return res, err
	}
	res.Selections = selections
	u.d.Logger.Info("plan accepted", zap.Int("selections", len(selections)))

	clipPaths := make([]string, len(selections))
	clipWarns := make([]string, len(selections))

	g, gctx := errgroup.WithContext(ctx)
	limit := in.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, sel := range selections {
		g.Go(func() error {
			dest := filepath.Join(in.ClipsDir, fmt.Sprintf("clip_%03d.mp4", i+1))

			crop, err := u.d.Media.DetectCrop(gctx, sel.AssetPath)
			if err != nil {
				// Letterbox detection is best-effort.
				u.d.Logger.Warn("crop detection failed",
					zap.String("asset", sel.AssetPath), zap.Error(err))
				crop = nil
			}

			spec := ports.ExtractSpec{
				Source: sel.AssetPath,
				Dest:   dest,
				Start:  sel.StartTime,
				End:    sel.EndTime,
				Crop:   crop,
			}
			if err := u.d.Media.Extract(gctx, spec); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				clipWarns[i] = fmt.Sprintf("dropping clip %d (%s): %v", i+1, sel.AssetPath, err)
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
	u.d.Logger.Info("assembly finished",
		zap.String("output", res.OutputPath),
		zap.Float64("duration", res.Duration),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// buildTimelines returns the supplied timelines with probed durations
// filled in, or runs the understander over every asset. An unprobeable
// asset keeps duration 0 with a warning; the validator then skips its
// bounds check rather than failing the run up front.
func (u Usecase) buildTimelines(ctx context.Context, in Input) ([]types.AssetTimeline, []string, error) {
	var warns []string

	if len(in.Timelines) > 0 {
		timelines := make([]types.AssetTimeline, len(in.Timelines))
		copy(timelines, in.Timelines)
		for i := range timelines {
			if timelines[i].Duration > 0 {
				continue
			}
			p, err := u.d.Media.Probe(ctx, timelines[i].Path)
			if err != nil {
				warns = append(warns, fmt.Sprintf("probe %s: %v", timelines[i].Path, err))
				continue
			}
			timelines[i].Duration = p.Duration
		}
		return timelines, warns, nil
	}

	if len(in.Assets) == 0 {
		return nil, nil, types.E(types.KindInvalidInput, "no assets and no timelines")
	}
	if u.d.Understander == nil {
		return nil, nil, types.E(types.KindInvalidInput, "assets supplied without an understander; pass timelines instead")
	}

	timelines := make([]types.AssetTimeline, 0, len(in.Assets))
	for _, path := range in.Assets {
		p, err := u.d.Media.Probe(ctx, path)
		if err != nil {
			return nil, warns, err
		}
		u.d.Logger.Info("understanding asset", zap.String("asset", path))
		desc, err := u.d.Understander.Describe(ctx, path)
		if err != nil {
			return nil, warns, types.Wrap(types.KindGenerationFailed, err, "understand %s", path)
		}
		timelines = append(timelines, types.AssetTimeline{
			Path:        path,
			Duration:    p.Duration,
			Description: desc,
		})
	}
	return timelines, warns, nil
}
