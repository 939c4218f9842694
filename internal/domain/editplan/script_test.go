package editplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Beat
	}{
		{
			name: "bulleted with duration hints",
			in:   "- Opening hook (3s)\n- Product close-up (5s)\n- Call to action (4s)",
			want: []Beat{
				{Index: 0, Text: "Opening hook (3s)", Seconds: 3},
				{Index: 1, Text: "Product close-up (5s)", Seconds: 5},
				{Index: 2, Text: "Call to action (4s)", Seconds: 4},
			},
		},
		{
			name: "numbered list",
			in:   "1. First beat\n2) Second beat",
			want: []Beat{
				{Index: 0, Text: "First beat"},
				{Index: 1, Text: "Second beat"},
			},
		},
		{
			name: "blank lines skipped",
			in:   "\n\nOnly beat\n\n",
			want: []Beat{{Index: 0, Text: "Only beat"}},
		},
		{
			name: "duration hint variants",
			in:   "Show unboxing for 4.5 seconds\nLinger 6 sec on the logo",
			want: []Beat{
				{Index: 0, Text: "Show unboxing for 4.5 seconds", Seconds: 4.5},
				{Index: 1, Text: "Linger 6 sec on the logo", Seconds: 6},
			},
		},
		{
			name: "empty script",
			in:   "   \n\t\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseScript(tt.in))
		})
	}
}

func TestTotalSeconds(t *testing.T) {
	t.Run("all hinted", func(t *testing.T) {
		beats := ParseScript("- a (3s)\n- b (5s)")
		total, ok := TotalSeconds(beats)
		require.True(t, ok)
		assert.InDelta(t, 8.0, total, 1e-9)
	})

	t.Run("partial hints disable the total", func(t *testing.T) {
		beats := ParseScript("- a (3s)\n- b")
		total, ok := TotalSeconds(beats)
		assert.False(t, ok)
		assert.InDelta(t, 3.0, total, 1e-9)
	})

	t.Run("no beats", func(t *testing.T) {
		_, ok := TotalSeconds(nil)
		assert.False(t, ok)
	})
}
