package planner

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/clipsmith/clipsmith/internal/domain/editplan"
	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/types"
)

var _ ports.Planner = (*Planner)(nil)

// Planner asks a text-generation oracle for a beat-to-asset plan, then
// re-checks every constraint locally. The oracle is untrusted: a plan
// that violates any invariant is rejected wholesale, never repaired.
type Planner struct {
	gen  ports.TextGenerator
	opts editplan.Options
}

func New(gen ports.TextGenerator, opts editplan.Options) *Planner {
	return &Planner{gen: gen, opts: opts}
}

func (p *Planner) Plan(ctx context.Context, script string, timelines []types.AssetTimeline) ([]types.ClipSelection, error) {
	beats := editplan.ParseScript(script)
	if len(beats) == 0 {
		return nil, types.E(types.KindInvalidInput, "script has no beats")
	}
	if len(timelines) == 0 {
		return nil, types.E(types.KindInvalidInput, "no asset timelines")
	}

	raw, err := p.gen.Generate(ctx, buildPrompt(script, timelines))
	if err != nil {
		return nil, types.Wrap(types.KindGenerationFailed, err, "plan generation")
	}

	clean, err := extractJSONArray(raw)
	if err != nil {
		return nil, types.Wrap(types.KindGenerationFailed, err, "plan generation")
	}

	var decoded []struct {
		AssetPath   string  `json:"asset_path"`
		StartTime   float64 `json:"start_time"`
		EndTime     float64 `json:"end_time"`
		Description string  `json:"description"`
	}
	if err := json.Unmarshal([]byte(clean), &decoded); err != nil {
		return nil, types.Wrap(types.KindGenerationFailed, err, "decode plan")
	}

	selections := make([]types.ClipSelection, len(decoded))
	for i, d := range decoded {
		selections[i] = types.ClipSelection{
			AssetPath:   d.AssetPath,
			StartTime:   d.StartTime,
			EndTime:     d.EndTime,
			Description: d.Description,
		}
	}

	if err := editplan.Validate(selections, timelines, beats, p.opts); err != nil {
		return nil, err
	}
	return selections, nil
}

// extractJSONArray tolerates code fences and conversational prose
// around the array; it takes the outermost [...] span.
func extractJSONArray(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", types.E(types.KindGenerationFailed, "empty oracle response")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "[")
	end := strings.LastIndex(t, "]")
	if start < 0 || end <= start {
		return "", types.E(types.KindGenerationFailed, "could not locate JSON array in: %q", truncate(t, 200))
	}
	return t[start : end+1], nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
