package cli

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clipsmith/clipsmith/internal/ports"
)

type fakeJobClient struct {
	submit     ports.SubmitResult
	submitErr  error
	pollURL    string
	pollErr    error
	polled     []string
	downloaded []string
}

func (f *fakeJobClient) Submit(ctx context.Context, payload map[string]any) (ports.SubmitResult, error) {
	return f.submit, f.submitErr
}

func (f *fakeJobClient) Poll(ctx context.Context, jobID string) (string, error) {
	f.polled = append(f.polled, jobID)
	return f.pollURL, f.pollErr
}

func (f *fakeJobClient) Download(ctx context.Context, url, dest string) error {
	f.downloaded = append(f.downloaded, url)
	return nil
}

func TestGenerateVideo_ImmediateURLSkipsPolling(t *testing.T) {
	c := &fakeJobClient{submit: ports.SubmitResult{ResultURL: "https://cdn/result.mp4"}}
	if err := generateVideo(context.Background(), c, map[string]any{"prompt": "p"}, "/tmp/out.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.polled) != 0 {
		t.Fatalf("immediate URL must not be polled, polled %v", c.polled)
	}
	if len(c.downloaded) != 1 || c.downloaded[0] != "https://cdn/result.mp4" {
		t.Fatalf("unexpected downloads: %v", c.downloaded)
	}
}

func TestGenerateVideo_PollsJobID(t *testing.T) {
	c := &fakeJobClient{
		submit:  ports.SubmitResult{JobID: "job-7"},
		pollURL: "https://cdn/job-7.mp4",
	}
	if err := generateVideo(context.Background(), c, map[string]any{"prompt": "p"}, "/tmp/out.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.polled) != 1 || c.polled[0] != "job-7" {
		t.Fatalf("unexpected polls: %v", c.polled)
	}
	if len(c.downloaded) != 1 || c.downloaded[0] != "https://cdn/job-7.mp4" {
		t.Fatalf("unexpected downloads: %v", c.downloaded)
	}
}

func TestGenerateVideo_NotReadyIsAnError(t *testing.T) {
	c := &fakeJobClient{submit: ports.SubmitResult{JobID: "job-8"}}
	err := generateVideo(context.Background(), c, map[string]any{"prompt": "p"}, "/tmp/out.mp4")
	if err == nil || !strings.Contains(err.Error(), "not ready") {
		t.Fatalf("expected not-ready error, got: %v", err)
	}
	if len(c.downloaded) != 0 {
		t.Fatalf("nothing may be downloaded without a URL, got %v", c.downloaded)
	}
}

func TestGenerateVideo_SubmitFailure(t *testing.T) {
	c := &fakeJobClient{submitErr: errors.New("status 400")}
	if err := generateVideo(context.Background(), c, map[string]any{"prompt": "p"}, "/tmp/out.mp4"); err == nil {
		t.Fatal("expected submit error")
	}
	if len(c.polled) != 0 || len(c.downloaded) != 0 {
		t.Fatal("failed submit must stop the flow")
	}
}
