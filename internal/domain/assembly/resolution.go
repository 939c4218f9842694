package assembly

import (
	"sort"

	"github.com/clipsmith/clipsmith/internal/types"
)

// ChooseTarget picks one output resolution for a batch of clips: the
// most frequent exact (width, height) wins, ties broken by the larger
// pixel count. Forcing outliers to conform to the majority minimizes
// total scaling/padding distortion across the batch. Falls back to
// fallback when no profile is usable.
func ChooseTarget(profiles []types.MediaProfile, fallback types.Resolution) types.Resolution {
	counts := make(map[types.Resolution]int)
	for _, p := range profiles {
		if p.Width <= 0 || p.Height <= 0 {
			continue
		}
		counts[types.Resolution{Width: p.Width, Height: p.Height}]++
	}
	if len(counts) == 0 {
		return fallback
	}

	keys := make([]types.Resolution, 0, len(counts))
	for r := range counts {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		if a.Pixels() != b.Pixels() {
			return a.Pixels() > b.Pixels()
		}
		if a.Width != b.Width {
			return a.Width > b.Width
		}
		return a.Height > b.Height
	})
	return keys[0]
}
