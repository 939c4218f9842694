package assembly

// Topology describes the audio-stream situation across a clip batch.
// Concat filters require a uniform stream topology, so the mixed case
// must be normalized before joining.
type Topology int

const (
	// TopologyAll: every clip has audio; nothing to do.
	TopologyAll Topology = iota
	// TopologyNone: no clip has audio; concatenate video-only.
	TopologyNone
	// TopologyMixed: some clips lack audio and need a silent track.
	TopologyMixed
)

// AudioTopology classifies a batch by per-clip audio presence and
// returns which clips need a synthesized silent track (only populated
// in the mixed case).
func AudioTopology(hasAudio []bool) (Topology, []int) {
	any, all := false, true
	for _, h := range hasAudio {
		any = any || h
		all = all && h
	}
	switch {
	case len(hasAudio) == 0 || all:
		return TopologyAll, nil
	case !any:
		return TopologyNone, nil
	}
	var need []int
	for i, h := range hasAudio {
		if !h {
			need = append(need, i)
		}
	}
	return TopologyMixed, need
}

// OutputHasAudio reports whether the concatenated output should carry
// an audio stream for the given topology.
func (t Topology) OutputHasAudio() bool { return t != TopologyNone }
