package editplan

import (
	"math"
	"sort"

	"github.com/clipsmith/clipsmith/internal/types"
)

// Options tune the hard constraints a plan must satisfy.
type Options struct {
	// MinClipSeconds is the minimum duration of a single selection.
	MinClipSeconds float64
	// TotalMarginFrac is the allowed relative deviation of the plan's
	// total duration from the script's intended total.
	TotalMarginFrac float64
	// TotalMarginFloorSeconds keeps the margin useful for short scripts.
	TotalMarginFloorSeconds float64
}

func DefaultOptions() Options {
	return Options{
		MinClipSeconds:          3.0,
		TotalMarginFrac:         0.20,
		TotalMarginFloorSeconds: 3.0,
	}
}

// durationEps absorbs float64 representation error in decoded times: a
// selection written as 1.1..4.1 computes to a hair under 3.0s and must
// not fail a 3.0s minimum.
const durationEps = 1e-9

// Validate re-checks every hard constraint of a proposed plan against
// the script beats and asset timelines, independently of whatever the
// proposer claims to have checked. The first violation is returned with
// the offending value; a plan that violates even one beat's constraint
// is rejected wholesale, never repaired.
func Validate(selections []types.ClipSelection, timelines []types.AssetTimeline, beats []Beat, opts Options) error {
	if opts.MinClipSeconds <= 0 {
		opts = DefaultOptions()
	}

	if len(selections) != len(beats) {
		return types.E(types.KindValidationFailed,
			"plan has %d selections for %d script beats", len(selections), len(beats))
	}

	order := make(map[string]int, len(timelines))
	durs := make(map[string]float64, len(timelines))
	for i, tl := range timelines {
		order[tl.Path] = i
		durs[tl.Path] = tl.Duration
	}

	seen := make(map[string]int, len(selections))
	prevOrder := -1
	var total float64
	for i, s := range selections {
		idx, ok := order[s.AssetPath]
		if !ok {
			return types.E(types.KindValidationFailed,
				"selection %d references unknown asset %q", i, s.AssetPath)
		}
		if s.StartTime < 0 || s.EndTime <= s.StartTime {
			return types.E(types.KindValidationFailed,
				"selection %d has invalid range [%.2f, %.2f]", i, s.StartTime, s.EndTime)
		}
		if d := s.Duration(); d < opts.MinClipSeconds-durationEps {
			return types.E(types.KindValidationFailed,
				"selection %d is %.2fs, below the %.1fs minimum", i, d, opts.MinClipSeconds)
		}
		if limit := durs[s.AssetPath]; limit > 0 && s.EndTime > limit+0.5 {
			return types.E(types.KindValidationFailed,
				"selection %d ends at %.2fs, beyond asset %q duration %.2fs", i, s.EndTime, s.AssetPath, limit)
		}
		if j, dup := seen[s.AssetPath]; dup {
			return types.E(types.KindValidationFailed,
				"asset %q used by selections %d and %d; each asset may be used once", s.AssetPath, j, i)
		}
		seen[s.AssetPath] = i
		if idx < prevOrder {
			return types.E(types.KindValidationFailed,
				"selection %d jumps back to asset %q, breaking source order", i, s.AssetPath)
		}
		prevOrder = idx
		total += s.Duration()
	}

	if err := checkOverlaps(selections); err != nil {
		return err
	}

	if want, ok := TotalSeconds(beats); ok && want > 0 {
		margin := math.Max(want*opts.TotalMarginFrac, opts.TotalMarginFloorSeconds)
		if math.Abs(total-want) > margin+durationEps {
			return types.E(types.KindValidationFailed,
				"plan totals %.1fs, script intends %.1fs (margin %.1fs)", total, want, margin)
		}
	}
	return nil
}

// checkOverlaps rejects overlapping ranges within one asset. With the
// uniqueness constraint enforced above this can never fire; it stays so
// that relaxing uniqueness later cannot silently admit overlapping cuts.
func checkOverlaps(selections []types.ClipSelection) error {
	byAsset := make(map[string][]types.ClipSelection)
	for _, s := range selections {
		byAsset[s.AssetPath] = append(byAsset[s.AssetPath], s)
	}
	for path, group := range byAsset {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].StartTime < group[j].StartTime })
		for i := 1; i < len(group); i++ {
			if group[i].StartTime < group[i-1].EndTime {
				return types.E(types.KindValidationFailed,
					"selections overlap within asset %q: [%.2f, %.2f] and [%.2f, %.2f]",
					path, group[i-1].StartTime, group[i-1].EndTime, group[i].StartTime, group[i].EndTime)
			}
		}
	}
	return nil
}

// AssetOrderIndex reports where path appears in the timeline input, for
// callers that want to reason about source order. -1 when absent.
func AssetOrderIndex(timelines []types.AssetTimeline, path string) int {
	for i, tl := range timelines {
		if tl.Path == path {
			return i
		}
	}
	return -1
}
