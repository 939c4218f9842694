package ports

import (
	"context"

	"github.com/clipsmith/clipsmith/internal/types"
)

// ExtractSpec describes one clip cut: a time range of a source file,
// codec-normalized into Dest. Crop, when set, is applied before
// encoding. Dimensions are not conformed at extraction time.
type ExtractSpec struct {
	Source string
	Dest   string
	Start  float64
	End    float64
	Crop   *types.CropRect
}

// ConcatResult reports a finished concatenation. Warnings list clips
// that were dropped instead of aborting the join.
type ConcatResult struct {
	Duration float64
	Warnings []string
}

// MediaTool is the media-normalization and concatenation engine.
type MediaTool interface {
	Probe(ctx context.Context, path string) (types.MediaProfile, error)
	DetectCrop(ctx context.Context, path string) (*types.CropRect, error)
	Extract(ctx context.Context, spec ExtractSpec) error
	Concatenate(ctx context.Context, clips []string, outPath string) (ConcatResult, error)
}

// Planner turns a narrative script plus annotated asset timelines into
// a validated ordered list of clip selections.
type Planner interface {
	Plan(ctx context.Context, script string, timelines []types.AssetTimeline) ([]types.ClipSelection, error)
}

// TextGenerator is the opaque generate_text capability.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Understander is the opaque understand_media capability: it returns a
// second-indexed textual timeline for a media file.
type Understander interface {
	Describe(ctx context.Context, path string) (string, error)
}

// SubmitResult is the outcome of an asynchronous job submission: either
// an immediate result URL or a job ID to poll.
type SubmitResult struct {
	ResultURL string
	JobID     string
}

// JobClient talks to a third-party asynchronous job API. Poll returns
// "" while the job is not ready, including when the poll budget runs
// out; retry policy belongs to the caller.
type JobClient interface {
	Submit(ctx context.Context, payload map[string]any) (SubmitResult, error)
	Poll(ctx context.Context, jobID string) (string, error)
	Download(ctx context.Context, url, dest string) error
}
