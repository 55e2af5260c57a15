// Package remote provides the JSON-over-HTTP client shared by the remote retrieval,
// rerank, and indexing adapters, including the transient-failure retry policy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts is the number of attempts made before giving up on transient failures.
	DefaultMaxAttempts = 5
	// DefaultBackoff is multiplied by the attempt number to get the sleep before the next attempt.
	DefaultBackoff = 1500 * time.Millisecond
	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 30 * time.Second
)

// ErrRetriesExhausted is returned when every attempt hit a transient failure.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ProviderError is a permanent, non-retryable failure reported by a remote provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsTransientStatus reports whether an HTTP status should be retried.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client performs JSON requests with a linear backoff on transient failures.
type Client struct {
	provider    string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxAttempts sets the number of attempts for transient failures.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the per-attempt backoff unit.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithSleep replaces the sleep function (tests use it to avoid real delays).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithLogger sets the logger for retry diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client labelled with provider for errors and logs.
func NewClient(provider string, opts ...Option) *Client {
	c := &Client{
		provider:    provider,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the provider label.
func (c *Client) Provider() string {
	return c.provider
}

// DoJSON sends body (JSON-encoded unless nil) and decodes a 2xx response into out (unless nil).
// 429 and 5xx gateway statuses and transport errors are retried; other statuses fail immediately.
func (c *Client) DoJSON(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", c.provider, err)
		}
	}
	return c.Do(ctx, method, url, headers, "application/json", payload, out)
}

// Do sends a raw payload with the given content type and decodes a 2xx JSON response into out.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, contentType string, payload []byte, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		respBody, status, err := c.once(ctx, method, url, headers, contentType, payload)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		case IsTransientStatus(status):
			lastErr = &ProviderError{Provider: c.provider, StatusCode: status, Body: string(respBody)}
		case status < 200 || status > 299:
			return &ProviderError{Provider: c.provider, StatusCode: status, Body: string(respBody)}
		default:
			if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("%s: failed to decode response: %w", c.provider, err)
			}
			return nil
		}

		c.logger.Warn("transient remote failure",
			zap.String("provider", c.provider),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %v", c.provider, ErrRetriesExhausted, c.maxAttempts, lastErr)
}

func (c *Client) once(ctx context.Context, method, url string, headers map[string]string, contentType string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
