// Package completion implements batched requests against an OpenAI-style
// text completion endpoint. Prompts are normalized into an ordered
// sequence, split into batches, and sent one batch at a time through a
// retry loop that shrinks the token budget on context-window rejections
// and backs off on everything else. The flat, batch-ordered choice
// sequence is then reshaped into one result per prompt.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const completionsPathFmt = "/v1/engines/%s/completions"

// reduceMarker is the phrase the service includes in its error message
// when the prompt plus the requested completion exceeds the model's
// context window.
const reduceMarker = "reduce your prompt"

// Auth holds authentication settings for the completion endpoint.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// Client issues requests against an OpenAI-style text completion API.
// Construct with New or as a struct literal; the zero value needs at
// least BaseURL to be useful.
type Client struct {
	BaseURL string            // API base URL (no trailing slash).
	Auth    Auth              // Authentication settings.
	HTTP    *http.Client      // HTTP client; falls back to a default with a 10-minute timeout.
	Headers map[string]string // Extra headers applied to every request.
	Logger  *zap.Logger       // Falls back to a no-op logger.

	clientOnce    sync.Once
	defaultClient *http.Client

	// sleepFunc is used for testing; defaults to a context-aware sleep.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates a Client for the given endpoint. baseURL should carry no
// trailing slash, e.g. "https://api.openai.com".
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		Auth:    Auth{Key: apiKey},
	}
}

// SetSleepFunc overrides the sleep function (for testing).
func (c *Client) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	c.sleepFunc = fn
}

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.sleepFunc != nil {
		return c.sleepFunc(ctx, d)
	}
	return contextSleep(ctx, d)
}

func (c *Client) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// httpClient returns the configured client or a cached default client
// with a 10-minute timeout.
func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}

	c.clientOnce.Do(func() {
		c.defaultClient = &http.Client{Timeout: 10 * time.Minute}
	})

	return c.defaultClient
}

// newRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if c.Auth.Key != "" {
		header := c.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := c.Auth.Key
		if header == "Authorization" {
			scheme := c.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if c.Auth.Scheme != "" {
			value = c.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// buildPayload merges the typed decoding arguments with the caller's
// extra kwargs. On a key collision the kwarg always wins, so callers can
// override any typed field explicitly.
func buildPayload(model string, batch []any, args DecodingArgs, extra map[string]any) map[string]any {
	p := args.payload()
	p["model"] = model
	p["prompt"] = batch

	for k, v := range extra {
		p[k] = v
	}

	return p
}

// classifyFailure maps a non-success response to a FailureKind. The
// context-window signal is still a message substring because the service
// reports it with varying status codes, but the match happens here once
// so callers only ever branch on the kind.
func classifyFailure(status int, message string) FailureKind {
	switch {
	case strings.Contains(message, reduceMarker):
		return FailureContextLength
	case status == http.StatusTooManyRequests:
		return FailureRateLimited
	default:
		return FailureOther
	}
}

// sendBatch performs exactly one request for one batch of prompts. It
// never retries and never sleeps; failure recovery belongs to the caller.
// On success the choices are returned in service order: all n completions
// for the batch's first prompt, then all n for the second, and so on.
func (c *Client) sendBatch(ctx context.Context, model string, batch []any, args DecodingArgs, extra map[string]any) ([]Choice, error) {
	body, err := json.Marshal(buildPayload(model, batch, args, extra))
	if err != nil {
		return nil, fmt.Errorf("completion: marshal request: %w", err)
	}

	path := fmt.Sprintf(completionsPathFmt, url.PathEscape(model))
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("completion: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		message := strings.TrimSpace(string(respBody))

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    message,
			Kind:       classifyFailure(resp.StatusCode, message),
		}
	}

	var parsed struct {
		Choices []Choice `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &TransportError{Reason: "decode response", Err: err}
	}

	if parsed.Choices == nil {
		return nil, &TransportError{Reason: `response has no "choices" array`}
	}

	return parsed.Choices, nil
}
