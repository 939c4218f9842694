package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/clipsmith/clipsmith/internal/ports"
)

var _ ports.JobClient = (*Client)(nil)

const (
	submitTimeout  = 5 * time.Minute
	maxSubmitTries = 4
)

// Client talks to an asynchronous generation job API: submit a job,
// poll until a result URL appears, download the artifact. The response
// shapes are tolerant because these APIs move keys around between
// versions.
type Client struct {
	key          string
	endpoint     string
	client       *http.Client
	pollInterval time.Duration
	pollBudget   time.Duration
}

type Option func(*Client)

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

func WithPollBudget(d time.Duration) Option {
	return func(c *Client) { c.pollBudget = d }
}

func New(apiKey, endpoint string, opts ...Option) *Client {
	c := &Client{
		key:          apiKey,
		endpoint:     strings.TrimRight(endpoint, "/"),
		client:       &http.Client{Timeout: 5 * time.Minute},
		pollInterval: 5 * time.Second,
		pollBudget:   10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts a job request. Responses carrying an immediate result
// URL short-circuit polling; otherwise the returned JobID is for Poll.
// Transient failures (429, 5xx, timeouts) are retried under one
// idempotency key so the remote side can dedupe.
func (c *Client) Submit(ctx context.Context, payload map[string]any) (ports.SubmitResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.SubmitResult{}, fmt.Errorf("marshal job payload: %w", err)
	}
	idempotencyKey := uuid.NewString()

	op := func() (ports.SubmitResult, error) {
		return c.submitOnce(ctx, body, idempotencyKey)
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxSubmitTries),
	)
}

func (c *Client) submitOnce(ctx context.Context, body []byte, idempotencyKey string) (ports.SubmitResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.SubmitResult{}, backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return ports.SubmitResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("job submit status %d: %s", resp.StatusCode, truncate(string(rb), 400))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return ports.SubmitResult{}, statusErr
		}
		return ports.SubmitResult{}, backoff.Permanent(statusErr)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return ports.SubmitResult{}, backoff.Permanent(fmt.Errorf("decode job response: %w", err))
	}

	if url := extractResultURL(data); url != "" {
		return ports.SubmitResult{ResultURL: url}, nil
	}
	if id := extractJobID(data); id != "" {
		return ports.SubmitResult{JobID: id}, nil
	}
	return ports.SubmitResult{}, backoff.Permanent(fmt.Errorf("job response carries neither result URL nor job ID"))
}

// Poll checks the job at a fixed interval until a result URL appears,
// the job terminally fails, or the poll budget runs out. Budget
// exhaustion returns "" without an error: not ready is a state, not a
// failure.
func (c *Client) Poll(ctx context.Context, jobID string) (string, error) {
	deadline := time.Now().Add(c.pollBudget)
	statusURL := c.endpoint + "/" + jobID

	for {
		if time.Now().After(deadline) {
			return "", nil
		}

		url, terminal, err := c.pollOnce(ctx, statusURL, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if terminal {
				return "", err
			}
			// Transient poll failures ride out the budget.
		} else if url != "" {
			return url, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, statusURL, jobID string) (url string, terminal bool, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return "", true, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", true, fmt.Errorf("job %s not found", jobID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return "", false, fmt.Errorf("job poll status %d: %s", resp.StatusCode, truncate(string(rb), 400))
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", false, err
	}

	if u := extractResultURL(data); u != "" {
		return u, false, nil
	}

	switch status := extractStatus(data); status {
	case "failed", "error", "cancelled":
		return "", true, fmt.Errorf("job %s %s", jobID, status)
	case "completed", "success", "finished":
		return "", true, fmt.Errorf("job %s reported %s without a result URL", jobID, status)
	}
	return "", false, nil
}

// Download streams the result artifact to dest.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("download %s: %w", url, err)
	}
	return f.Close()
}

var resultURLKeys = []string{"video_url", "url", "download_url", "video", "result_url"}

func extractResultURL(data map[string]any) string {
	if u := urlFromMap(data); u != "" {
		return u
	}
	for _, nk := range []string{"data", "result"} {
		switch nested := data[nk].(type) {
		case map[string]any:
			if u := urlFromMap(nested); u != "" {
				return u
			}
		case []any:
			for _, it := range nested {
				if m, ok := it.(map[string]any); ok {
					if u := urlFromMap(m); u != "" {
						return u
					}
				}
			}
		}
	}
	return ""
}

func urlFromMap(m map[string]any) string {
	for _, k := range resultURLKeys {
		if v, ok := m[k].(string); ok && strings.HasPrefix(v, "http") {
			return v
		}
	}
	return ""
}

var jobIDKeys = []string{"task_id", "id", "video_id", "job_id"}

func extractJobID(data map[string]any) string {
	if id := idFromMap(data); id != "" {
		return id
	}
	for _, nk := range []string{"data", "result"} {
		switch nested := data[nk].(type) {
		case map[string]any:
			if id := idFromMap(nested); id != "" {
				return id
			}
		case []any:
			for _, it := range nested {
				if m, ok := it.(map[string]any); ok {
					if id := idFromMap(m); id != "" {
						return id
					}
				}
			}
		}
	}
	return ""
}

func idFromMap(m map[string]any) string {
	for _, k := range jobIDKeys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func extractStatus(data map[string]any) string {
	for _, k := range []string{"status", "state"} {
		if v, ok := data[k].(string); ok && v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
