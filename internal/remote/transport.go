package remote

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a discarded transient response is kept for the error.
const maxErrorBody = 4096

type retryTransport struct {
	client *Client
	base   http.RoundTripper
}

// Transport returns an http.RoundTripper that applies the client's retry policy
// to every request, for SDKs that own the request cycle and accept a custom
// *http.Client. The base transport is taken from WithHTTPClient when set.
func (c *Client) Transport() http.RoundTripper {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{client: c, base: base}
}

// HTTPClient wraps Transport in an *http.Client. It has no overall timeout;
// callers bound the whole retry cycle with the request context.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Transport: c.Transport()}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := t.client
	ctx := req.Context()

	var payload []byte
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read request body: %w", c.provider, err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		r := req.Clone(ctx)
		if payload != nil {
			r.Body = io.NopCloser(bytes.NewReader(payload))
			r.ContentLength = int64(len(payload))
		}
		resp, err := t.base.RoundTrip(r)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		case IsTransientStatus(resp.StatusCode):
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			lastErr = &ProviderError{Provider: c.provider, StatusCode: resp.StatusCode, Body: string(body)}
		default:
			return resp, nil
		}

		c.logger.Warn("transient remote failure",
			zap.String("provider", c.provider),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w after %d attempts: %v", c.provider, ErrRetriesExhausted, c.maxAttempts, lastErr)
}
