package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clipsmith/clipsmith/internal/pipeline"
)

func run(cmd *cobra.Command, scriptPath, mediaDir string) error {
	outDir, _ := cmd.Flags().GetString("out")
	timelinesPath, _ := cmd.Flags().GetString("timelines")
	editScriptPath, _ := cmd.Flags().GetString("edit-script")
	profilePath, _ := cmd.Flags().GetString("profile")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	ffmpegPath, _ := cmd.Flags().GetString("ffmpeg")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" && editScriptPath == "" {
		return errors.New("OPENAI_API_KEY is required (set it in .env)")
	}

	absScript, err := filepath.Abs(scriptPath)
	if err != nil {
		return err
	}
	if mediaDir != "" {
		if mediaDir, err = filepath.Abs(mediaDir); err != nil {
			return err
		}
	}
	if editScriptPath != "" {
		if editScriptPath, err = filepath.Abs(editScriptPath); err != nil {
			return err
		}
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		ScriptPath:     absScript,
		MediaDir:       mediaDir,
		TimelinesPath:  timelinesPath,
		EditScriptPath: editScriptPath,
		OutDir:         outDir,
		ProfilePath:    profilePath,
		Concurrency:    concurrency,

		FFmpegPath: ffmpegPath,

		OpenAIAPIKey:       apiKey,
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:      getenvDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAllowedHosts: splitHosts(os.Getenv("OPENAI_ALLOWED_HOSTS")),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),

		Logger: log,
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "output: %s (%.1fs, %d clips)\n",
		res.OutputPath, res.Duration, len(res.Selections))
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
	}
	return nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func splitHosts(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
