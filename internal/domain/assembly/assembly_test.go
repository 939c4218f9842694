package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipsmith/clipsmith/internal/types"
)

var fallback = types.Resolution{Width: 720, Height: 1280}

func profiles(dims ...[2]int) []types.MediaProfile {
	out := make([]types.MediaProfile, len(dims))
	for i, d := range dims {
		out[i] = types.MediaProfile{Width: d[0], Height: d[1]}
	}
	return out
}

func TestChooseTarget(t *testing.T) {
	tests := []struct {
		name string
		in   []types.MediaProfile
		want types.Resolution
	}{
		{
			name: "clear majority wins",
			in:   profiles([2]int{720, 1280}, [2]int{720, 1280}, [2]int{1080, 1920}),
			want: types.Resolution{Width: 720, Height: 1280},
		},
		{
			name: "tie broken by pixel count",
			in:   profiles([2]int{720, 1280}, [2]int{1080, 1920}),
			want: types.Resolution{Width: 1080, Height: 1920},
		},
		{
			name: "equal pixels tie broken by width",
			in:   profiles([2]int{1280, 720}, [2]int{720, 1280}),
			want: types.Resolution{Width: 1280, Height: 720},
		},
		{
			name: "single clip",
			in:   profiles([2]int{640, 480}),
			want: types.Resolution{Width: 640, Height: 480},
		},
		{
			name: "degenerate profiles fall back",
			in:   profiles([2]int{0, 0}, [2]int{-1, 5}),
			want: fallback,
		},
		{
			name: "empty batch falls back",
			in:   nil,
			want: fallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseTarget(tt.in, fallback))
		})
	}
}

func TestChooseTarget_Deterministic(t *testing.T) {
	in := profiles([2]int{720, 1280}, [2]int{1080, 1920}, [2]int{640, 480})
	first := ChooseTarget(in, fallback)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ChooseTarget(in, fallback))
	}
}

func TestAudioTopology(t *testing.T) {
	tests := []struct {
		name     string
		in       []bool
		want     Topology
		wantNeed []int
	}{
		{"all have audio", []bool{true, true, true}, TopologyAll, nil},
		{"none have audio", []bool{false, false}, TopologyNone, nil},
		{"mixed", []bool{true, false, true, false}, TopologyMixed, []int{1, 3}},
		{"single silent", []bool{false}, TopologyNone, nil},
		{"empty batch", nil, TopologyAll, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, need := AudioTopology(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantNeed, need)
		})
	}
}

func TestTopology_OutputHasAudio(t *testing.T) {
	assert.True(t, TopologyAll.OutputHasAudio())
	assert.True(t, TopologyMixed.OutputHasAudio())
	assert.False(t, TopologyNone.OutputHasAudio())
}
