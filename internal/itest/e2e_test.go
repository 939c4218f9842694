//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipsmith/clipsmith/internal/pipeline"
	"github.com/clipsmith/clipsmith/internal/types"
)

// TestE2E drives the full pipeline against the real planning oracle.
// Timelines are pre-generated from synthesized fixtures so no Gemini
// key is needed; OPENAI_API_KEY is.
func TestE2E(t *testing.T) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Fatalf("OPENAI_API_KEY is required for itest")
	}

	tmp := t.TempDir()

	a := filepath.Join(tmp, "01_intro.mp4")
	b := filepath.Join(tmp, "02_product.mp4")
	synthClip(t, a, "720x1280", 12, true)
	synthClip(t, b, "720x1280", 12, true)

	timelines := []types.AssetTimeline{
		{Path: a, Duration: 12, Description: "Second 0-12: blue brand intro card with upbeat tone"},
		{Path: b, Duration: 12, Description: "Second 0-12: blue product showcase with steady tone"},
	}
	tb, err := json.Marshal(timelines)
	if err != nil {
		t.Fatal(err)
	}
	timelinesPath := filepath.Join(tmp, "timelines.json")
	if err := os.WriteFile(timelinesPath, tb, 0o644); err != nil {
		t.Fatal(err)
	}

	scriptPath := filepath.Join(tmp, "script.txt")
	script := "- Open on the brand intro (4s)\n- Show the product (4s)"
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	cfg := pipeline.Config{
		ScriptPath:    scriptPath,
		TimelinesPath: timelinesPath,
		OutDir:        filepath.Join(tmp, "out"),
		FFmpegPath:    "ffmpeg",
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if _, err := os.Stat(res.OutputPath); err != nil {
		t.Fatalf("missing output video: %v", err)
	}
	if res.Duration < 5 || res.Duration > 11 {
		t.Fatalf("final duration far from the script's 8s: %v", res.Duration)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(res.OutputPath), "result.json")); err != nil {
		t.Fatalf("missing result manifest: %v", err)
	}
}
