package planner

import (
	"strconv"
	"strings"

	"github.com/clipsmith/clipsmith/internal/types"
)

// buildPrompt renders the constraint prompt for the selection oracle.
// The asset timelines are presented in their catalog order; the hard
// constraints mirror exactly what the validator re-checks afterwards,
// so a well-behaved model has everything it needs to produce a plan
// that survives validation.
func buildPrompt(script string, timelines []types.AssetTimeline) string {
	var b strings.Builder

	b.WriteString("You are a professional AI video editor.\n\n")
	b.WriteString("Your task: for each beat in the USER SCRIPT, select exactly one non-overlapping clip ")
	b.WriteString("from the SOURCE ASSETS below, in the same beat order, with no asset reuse. ")
	b.WriteString("Do not change the original asset order: always move forward through the assets ")
	b.WriteString("as they are listed; never jump back to an earlier asset.\n\n")

	b.WriteString("## SOURCE ASSETS (in order)\n\n")
	for i, tl := range timelines {
		b.WriteString("### Asset ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(": ")
		b.WriteString(tl.Path)
		if tl.Duration > 0 {
			b.WriteString(" (duration ")
			b.WriteString(strconv.FormatFloat(tl.Duration, 'f', 1, 64))
			b.WriteString("s)")
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(tl.Description))
		b.WriteString("\n\n")
	}

	b.WriteString("## USER SCRIPT\n")
	b.WriteString(strings.TrimSpace(script))
	b.WriteString("\n\n")

	b.WriteString(`## HARD CONSTRAINTS (must pass all):
1) One-to-one, order-locked mapping:
   - Parse the USER SCRIPT into an ordered list of beats.
   - Produce exactly one clip per beat, in beat order.
   - The chosen asset for each clip must appear at or after the previous clip's asset in the catalog; never jump back.
2) Unique asset usage: each asset_path may be used at most once across the entire output.
3) Semantic completeness: do not cut mid-action or mid-sentence; prefer natural boundaries visible in the timeline.
4) Duration alignment: each clip >= 3.0s; each clip close to its beat's intended duration; the total close to the script's total.
5) Valid times: start_time < end_time for every clip; times must stay within the asset's bounds; no overlapping ranges within any asset.
6) Tie-breaking: prefer emotionally and visually strong moments most faithful to the beat.

## VALIDATION (self-check before you output):
- Number of clips == number of script beats.
- All asset_path values are unique and follow the catalog order with no backward jumps.
- All time ranges are numeric, >= 3.0s, and within asset bounds.
- Total duration is close to the script's total.

## OUTPUT FORMAT (JSON array only, no extra text):
[
  {
    "asset_path": "exactly-as-listed-above",
    "start_time": 12.0,
    "end_time": 18.5,
    "description": "Briefly describe the visible moment and how it fulfills the beat."
  }
]

Return only the final JSON array of selected clips.`)

	return b.String()
}
