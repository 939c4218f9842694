package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "clipsmith <script.txt> [media-dir]",
		Short:        "Assemble a short marketing video from a script and a media library",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaDir := ""
			if len(args) > 1 {
				mediaDir = args[1]
			}
			return run(cmd, args[0], mediaDir)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.AddCommand(newGenerateCmd())

	// Visible flags
	root.Flags().String("out", "out", "Output directory")
	root.Flags().String("timelines", "", "Pre-generated asset timelines JSON (skips media understanding)")
	root.Flags().String("edit-script", "", "Pre-authored shot list JSON (skips planning; the script argument is ignored)")
	root.Flags().String("profile", "", "YAML encoding/validation profile")
	root.Flags().Int("concurrency", 0, "Parallel clip extractions (0 = profile default)")

	// Hidden tuning flag (internal)
	root.Flags().String("ffmpeg", "ffmpeg", "ffmpeg binary path")
	_ = root.Flags().MarkHidden("ffmpeg")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
