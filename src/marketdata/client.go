package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/username/trackfolio/src/logger"
	"golang.org/x/time/rate"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 4 * time.Second
)

// Client wraps an http.Client with a per-provider token-bucket rate limiter
// and retry with capped exponential backoff. Every outbound market data call
// goes through it so a single misbehaving provider cannot exhaust quotas.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	provider   string
}

// NewClient creates a client for the named provider. rps is the sustained
// request rate, burst the bucket size.
func NewClient(provider string, rps float64, burst int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		provider:   provider,
	}
}

// NewClientWithHTTP is used by providers that need a customized http.Client
// (cookie jars, redirects).
func NewClientWithHTTP(provider string, rps float64, burst int, hc *http.Client) *Client {
	return &Client{httpClient: hc, limiter: rate.NewLimiter(rate.Limit(rps), burst), provider: provider}
}

// Do executes the request honouring the rate limit and retrying transport
// errors, 429s and 5xx responses. The caller owns the response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%s: rate limiter wait: %w", c.provider, err)
		}

		resp, err := c.httpClient.Do(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("%s: unexpected status %d", c.provider, resp.StatusCode)
			resp.Body.Close()
		}

		if attempt < maxAttempts {
			logger.L.Warn("Market data request failed, retrying",
				"provider", c.provider, "attempt", attempt, "backoff", backoff.String(), "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
	return nil, fmt.Errorf("%s: request failed after %d attempts: %w", c.provider, maxAttempts, lastErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// GetJSON fetches the URL and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %d: %s", c.provider, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

func decodeJSON(resp *http.Response, out interface{}) error {
	return json.NewDecoder(resp.Body).Decode(out)
}
