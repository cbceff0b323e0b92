// Package registry reconciles canonical packages against public package
// registries: does the name exist, who owns it, when was it last published.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	stderrors "errors"

	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/httputil"
)

var (
	// ErrNotFound marks a definitive does-not-exist response. This is a
	// result, not a failure: unclaimed detection depends on it never being
	// conflated with a transient error.
	ErrNotFound = stderrors.New("package not found")

	// ErrNetwork marks HTTP failures (timeouts, connection errors, 5xx).
	ErrNetwork = stderrors.New("network error")
)

// Client is the shared HTTP layer for all registry checkers. It maps
// response status onto the error taxonomy the reconciler's retry loop
// understands; it does not retry itself.
type Client struct {
	http    *http.Client
	headers map[string]string
}

// NewClient creates a client with default timeouts. headers, when non-nil,
// are applied to every request.
func NewClient(headers map[string]string) *Client {
	return &Client{
		http:    httputil.NewHTTPClient(),
		headers: headers,
	}
}

// Get performs a GET and JSON-decodes the body into v.
// Status mapping: 404 returns ErrNotFound, 429 returns a RateLimitedError,
// 5xx and transport errors return a RetryableError.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound ||
		resp.StatusCode == http.StatusGone:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &errors.RateLimitedError{
			RetryAfter: retryAfter,
			Message:    "registry rate limit",
		}
	case resp.StatusCode >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}
}
