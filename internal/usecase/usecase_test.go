package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/types"
)

type fakeMedia struct {
	mu          sync.Mutex
	probes      map[string]types.MediaProfile
	probeErrs   map[string]error
	extractErrs map[string]error
	extracted   []ports.ExtractSpec
	concat      ports.ConcatResult
	concatErr   error
	concatClips []string
}

func (f *fakeMedia) Probe(_ context.Context, path string) (types.MediaProfile, error) {
	if err := f.probeErrs[path]; err != nil {
		return types.MediaProfile{}, err
	}
	if p, ok := f.probes[path]; ok {
		return p, nil
	}
	return types.MediaProfile{Duration: 30, Width: 720, Height: 1280, HasAudio: true}, nil
}

func (f *fakeMedia) DetectCrop(_ context.Context, _ string) (*types.CropRect, error) {
	return nil, nil
}

func (f *fakeMedia) Extract(_ context.Context, spec ports.ExtractSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.extractErrs[spec.Source]; err != nil {
		return err
	}
	f.extracted = append(f.extracted, spec)
	return nil
}

func (f *fakeMedia) Concatenate(_ context.Context, clips []string, _ string) (ports.ConcatResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concatClips = clips
	return f.concat, f.concatErr
}

type fakePlanner struct {
	selections []types.ClipSelection
	err        error
}

func (f *fakePlanner) Plan(_ context.Context, _ string, _ []types.AssetTimeline) ([]types.ClipSelection, error) {
	return f.selections, f.err
}

type fakeUnderstander struct {
	descs map[string]string
	err   error
	calls []string
}

func (f *fakeUnderstander) Describe(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return "", f.err
	}
	return f.descs[path], nil
}

func baseInput() Input {
	return Input{
		Script: "- hook (5s)\n- reveal (5s)",
		Timelines: []types.AssetTimeline{
			{Path: "a.mp4", Duration: 30, Description: "intro"},
			{Path: "b.mp4", Duration: 30, Description: "product"},
		},
		ClipsDir:    "/tmp/clips",
		OutputPath:  "/tmp/final.mp4",
		Concurrency: 2,
	}
}

func basePlan() []types.ClipSelection {
	return []types.ClipSelection{
		{AssetPath: "a.mp4", StartTime: 0, EndTime: 5},
		{AssetPath: "b.mp4", StartTime: 10, EndTime: 15},
	}
}

func TestRun_HappyPath(t *testing.T) {
	media := &fakeMedia{concat: ports.ConcatResult{Duration: 10}}
	u := New(Deps{Media: media, Planner: &fakePlanner{selections: basePlan()}})

	res, err := u.Run(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OutputPath != "/tmp/final.mp4" || res.Duration != 10 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(media.extracted) != 2 {
		t.Fatalf("expected 2 extractions, got %d", len(media.extracted))
	}
	if len(media.concatClips) != 2 {
		t.Fatalf("expected 2 clips at concat, got %v", media.concatClips)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestRun_RejectedPlanStopsBeforeExtraction(t *testing.T) {
	media := &fakeMedia{}
	planErr := types.E(types.KindValidationFailed, "asset reused")
	u := New(Deps{Media: media, Planner: &fakePlanner{err: planErr}})

	_, err := u.Run(context.Background(), baseInput())
	if !types.IsKind(err, types.KindValidationFailed) {
		t.Fatalf("expected validation failure, got: %v", err)
	}
	if len(media.extracted) != 0 {
		t.Fatalf("rejected plan must not extract; got %d extractions", len(media.extracted))
	}
}

func TestRun_ExtractionFailureBecomesWarning(t *testing.T) {
	media := &fakeMedia{
		extractErrs: map[string]error{"a.mp4": errors.New("encoder exploded")},
		concat:      ports.ConcatResult{Duration: 5},
	}
	u := New(Deps{Media: media, Planner: &fakePlanner{selections: basePlan()}})

	res, err := u.Run(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "a.mp4") {
		t.Fatalf("expected a drop warning for a.mp4, got: %v", res.Warnings)
	}
	if len(media.concatClips) != 1 {
		t.Fatalf("expected the surviving clip at concat, got %v", media.concatClips)
	}
}

func TestRun_ConcatWarningsSurface(t *testing.T) {
	media := &fakeMedia{
		concat: ports.ConcatResult{Duration: 5, Warnings: []string{"dropping clip_002.mp4: corrupt"}},
	}
	u := New(Deps{Media: media, Planner: &fakePlanner{selections: basePlan()}})

	res, err := u.Run(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "corrupt") {
		t.Fatalf("expected the concat warning to surface, got: %v", res.Warnings)
	}
}

func TestRun_ConcatFailurePropagates(t *testing.T) {
	media := &fakeMedia{concatErr: types.E(types.KindNoValidClips, "no usable clips")}
	u := New(Deps{Media: media, Planner: &fakePlanner{selections: basePlan()}})

	_, err := u.Run(context.Background(), baseInput())
	if !types.IsKind(err, types.KindNoValidClips) {
		t.Fatalf("expected NoValidClips, got: %v", err)
	}
}

func TestRun_UnderstanderBuildsTimelines(t *testing.T) {
	media := &fakeMedia{concat: ports.ConcatResult{Duration: 10}}
	und := &fakeUnderstander{descs: map[string]string{
		"a.mp4": "Second 0-1: logo",
		"b.mp4": "Second 0-1: product",
	}}
	u := New(Deps{Media: media, Planner: &fakePlanner{selections: basePlan()}, Understander: und})

	in := baseInput()
	in.Timelines = nil
	in.Assets = []string{"a.mp4", "b.mp4"}

	if _, err := u.Run(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(und.calls) != 2 {
		t.Fatalf("expected 2 describe calls, got %v", und.calls)
	}
}

func TestRun_SuppliedTimelinesSkipUnderstander(t *testing.T) {
	media := &fakeMedia{concat: ports.ConcatResult{Duration: 10}}
	und := &fakeUnderstander{}
	u := New(Deps{Media: media, Planner: &fakePlanner{selections: basePlan()}, Understander: und})

	if _, err := u.Run(context.Background(), baseInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(und.calls) != 0 {
		t.Fatalf("understander must not run with supplied timelines, got %v", und.calls)
	}
}

func TestRun_MissingDurationsFilledByProbe(t *testing.T) {
	media := &fakeMedia{
		probes: map[string]types.MediaProfile{"a.mp4": {Duration: 42}},
		concat: ports.ConcatResult{Duration: 10},
	}
	captured := &capturePlanner{selections: basePlan()}
	u := New(Deps{Media: media, Planner: captured})

	in := baseInput()
	in.Timelines[0].Duration = 0

	if _, err := u.Run(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.timelines[0].Duration != 42 {
		t.Fatalf("expected probed duration 42, got %+v", captured.timelines[0])
	}
}

func TestRun_NoInputs(t *testing.T) {
	u := New(Deps{Media: &fakeMedia{}, Planner: &fakePlanner{}})
	_, err := u.Run(context.Background(), Input{Script: "- beat"})
	if !types.IsKind(err, types.KindInvalidInput) {
		t.Fatalf("expected invalid input, got: %v", err)
	}
}

type capturePlanner struct {
	selections []types.ClipSelection
	timelines  []types.AssetTimeline
}

func (c *capturePlanner) Plan(_ context.Context, _ string, timelines []types.AssetTimeline) ([]types.ClipSelection, error) {
	c.timelines = timelines
	return c.selections, nil
}
