package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/clipsmith/clipsmith/internal/ports"
)

var _ ports.Understander = (*Adapter)(nil)

const (
	defaultBaseURL  = "https://generativelanguage.googleapis.com"
	defaultModel    = "gemini-2.5-pro"
	defaultInterval = 15 * time.Second
	defaultBudget   = 10 * time.Minute
	maxAttempts     = 4
)

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func retryOpts() []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
	}
}

// Adapter analyzes video files through the Gemini files API: upload,
// wait for remote processing, then request a second-indexed timeline.
type Adapter struct {
	key          string
	model        string
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	pollBudget   time.Duration
}

type Option func(*Adapter)

// WithPollInterval overrides how often processing state is re-checked.
func WithPollInterval(d time.Duration) Option {
	return func(a *Adapter) { a.pollInterval = d }
}

// WithPollBudget bounds the total wait for remote processing.
func WithPollBudget(d time.Duration) Option {
	return func(a *Adapter) { a.pollBudget = d }
}

// WithBaseURL points the adapter at a different endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

func New(apiKey, model string, opts ...Option) *Adapter {
	if model == "" {
		model = defaultModel
	}
	a := &Adapter{
		key:          apiKey,
		model:        model,
		baseURL:      defaultBaseURL,
		client:       &http.Client{Timeout: 10 * time.Minute},
		pollInterval: defaultInterval,
		pollBudget:   defaultBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type remoteFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	State    string `json:"state"`
	MimeType string `json:"mimeType"`
}

// Describe uploads the video, waits until the remote side has
// processed it, and returns a second-by-second textual timeline. The
// remote file is deleted afterwards whether analysis succeeded or not.
// Transient failures (429, 5xx, network errors) on each call are
// retried with exponential backoff; auth and request errors fail
// immediately.
func (a *Adapter) Describe(ctx context.Context, path string) (string, error) {
	f, err := a.upload(ctx, path)
	if err != nil {
		return "", err
	}
	defer a.deleteFile(f.Name)

	f, err = a.waitProcessed(ctx, f)
	if err != nil {
		return "", err
	}

	return a.analyze(ctx, f)
}

func (a *Adapter) upload(ctx context.Context, path string) (remoteFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return remoteFile{}, fmt.Errorf("read %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	op := func() (remoteFile, error) {
		return a.uploadOnce(ctx, path, data, mimeType)
	}
	return backoff.Retry(ctx, op, retryOpts()...)
}

func (a *Adapter) uploadOnce(ctx context.Context, path string, data []byte, mimeType string) (remoteFile, error) {
	url := a.baseURL + "/upload/v1beta/files?key=" + a.key
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return remoteFile{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")

	resp, err := a.client.Do(req)
	if err != nil {
		return remoteFile{}, fmt.Errorf("upload %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("upload %s: gemini status %d: %s", path, resp.StatusCode, truncate(string(rb), 400))
		if retryableStatus(resp.StatusCode) {
			return remoteFile{}, statusErr
		}
		return remoteFile{}, backoff.Permanent(statusErr)
	}

	var out struct {
		File remoteFile `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return remoteFile{}, backoff.Permanent(fmt.Errorf("upload %s: decode response: %w", path, err))
	}
	if out.File.Name == "" {
		return remoteFile{}, backoff.Permanent(fmt.Errorf("upload %s: no file name in response", path))
	}
	if out.File.MimeType == "" {
		out.File.MimeType = mimeType
	}
	return out.File, nil
}

func (a *Adapter) waitProcessed(ctx context.Context, f remoteFile) (remoteFile, error) {
	deadline := time.Now().Add(a.pollBudget)
	for f.State == "PROCESSING" {
		if time.Now().After(deadline) {
			return f, fmt.Errorf("gemini file %s still processing after %s", f.Name, a.pollBudget)
		}
		select {
		case <-ctx.Done():
			return f, ctx.Err()
		case <-time.After(a.pollInterval):
		}

		cur, err := a.getFile(ctx, f.Name)
		if err != nil {
			return f, err
		}
		cur.MimeType = f.MimeType
		if cur.URI == "" {
			cur.URI = f.URI
		}
		f = cur
	}
	if f.State == "FAILED" {
		return f, fmt.Errorf("gemini processing failed for %s", f.Name)
	}
	return f, nil
}

func (a *Adapter) getFile(ctx context.Context, name string) (remoteFile, error) {
	op := func() (remoteFile, error) {
		return a.getFileOnce(ctx, name)
	}
	return backoff.Retry(ctx, op, retryOpts()...)
}

func (a *Adapter) getFileOnce(ctx context.Context, name string) (remoteFile, error) {
	url := a.baseURL + "/v1beta/" + name + "?key=" + a.key
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return remoteFile{}, backoff.Permanent(err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return remoteFile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("gemini status %d for %s: %s", resp.StatusCode, name, truncate(string(rb), 400))
		if retryableStatus(resp.StatusCode) {
			return remoteFile{}, statusErr
		}
		return remoteFile{}, backoff.Permanent(statusErr)
	}
	var f remoteFile
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return remoteFile{}, backoff.Permanent(err)
	}
	return f, nil
}

func (a *Adapter) analyze(ctx context.Context, f remoteFile) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": timelinePrompt},
					{"file_data": map[string]any{
						"file_uri":  f.URI,
						"mime_type": f.MimeType,
					}},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	op := func() (string, error) {
		return a.analyzeOnce(ctx, body)
	}
	return backoff.Retry(ctx, op, retryOpts()...)
}

func (a *Adapter) analyzeOnce(ctx context.Context, body []byte) (string, error) {
	url := a.baseURL + "/v1beta/models/" + a.model + ":generateContent?key=" + a.key
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini analyze: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("gemini analyze status %d: %s", resp.StatusCode, truncate(string(rb), 400))
		if retryableStatus(resp.StatusCode) {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	var raw struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", backoff.Permanent(err)
	}
	if len(raw.Candidates) == 0 {
		return "", backoff.Permanent(fmt.Errorf("gemini analyze: no candidates in response"))
	}
	var b strings.Builder
	for _, p := range raw.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", backoff.Permanent(fmt.Errorf("gemini analyze: empty response text"))
	}
	return text, nil
}

// deleteFile is best-effort remote cleanup; the files API garbage
// collects uploads after 48h anyway.
func (a *Adapter) deleteFile(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url := a.baseURL + "/v1beta/" + name + "?key=" + a.key
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

const timelinePrompt = `Please provide a comprehensive analysis of this video content.
Analyze the video as a SECOND-BY-SECOND BREAKDOWN.

Provide a detailed timeline analysis describing what happens in each second of the video:

Second 0-1: [Description]
Second 1-2: [Description]
Second 2-3: [Description]
... (continue for the entire video duration)

For each second, describe:
- Visual elements and actions
- Any audio or dialogue
- Scene transitions or changes
- Notable events or movements

Please be thorough and detailed so someone who hasn't seen the video can understand exactly what happens moment by moment. Only output the final results.`

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
