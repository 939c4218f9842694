package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/ports/adapters/jobapi"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "generate <prompt>",
		Short:        "Generate a video clip through the async job API and download it",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0])
		},
	}
	cmd.Flags().String("dest", "generated.mp4", "Download destination")
	cmd.Flags().String("image-url", "", "Source image URL for image-to-video")
	cmd.Flags().String("model", "", "Remote generation model")
	return cmd
}

func runGenerate(cmd *cobra.Command, prompt string) error {
	dest, _ := cmd.Flags().GetString("dest")
	imageURL, _ := cmd.Flags().GetString("image-url")
	model, _ := cmd.Flags().GetString("model")

	key := os.Getenv("JOBAPI_KEY")
	endpoint := os.Getenv("JOBAPI_ENDPOINT")
	if key == "" || endpoint == "" {
		return errors.New("JOBAPI_KEY and JOBAPI_ENDPOINT are required (set them in .env)")
	}

	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"action": "generate",
		"prompt": prompt,
	}
	if imageURL != "" {
		payload["image_url"] = imageURL
	}
	if model != "" {
		payload["model"] = model
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := generateVideo(ctx, jobapi.New(key, endpoint), payload, dest); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "downloaded: %s\n", dest)
	return nil
}

// generateVideo drives one job end to end: submit, poll when the
// response carries a job ID instead of an immediate URL, download.
func generateVideo(ctx context.Context, client ports.JobClient, payload map[string]any, dest string) error {
	sub, err := client.Submit(ctx, payload)
	if err != nil {
		return err
	}

	url := sub.ResultURL
	if url == "" {
		url, err = client.Poll(ctx, sub.JobID)
		if err != nil {
			return err
		}
		if url == "" {
			return fmt.Errorf("job %s not ready before the poll budget expired", sub.JobID)
		}
	}
	return client.Download(ctx, url, dest)
}
