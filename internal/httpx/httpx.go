// Package httpx sends JSON API requests with bounded retries on throttling and server errors.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const maxErrorBody = 512

// StatusError is returned for any non-2xx response that is not retried (or ran out of retries).
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Doer struct {
	Client     *http.Client
	MaxRetries int
	RetryDelay time.Duration
}

// Do sends the request built by newRequest, retrying transport errors, 429 and 5xx
// with a doubling delay. Retry-After on a 429 overrides the delay for that attempt.
func (d *Doer) Do(ctx context.Context, newRequest func(ctx context.Context) (*http.Request, error)) (*Response, error) {
	retryDelay := d.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}

	var lastErr error
	wait := time.Duration(0)
	for i := 0; i <= d.MaxRetries; i++ {
		if i > 0 {
			if err := Sleep(ctx, wait); err != nil {
				return nil, err
			}
			retryDelay *= 2
		}
		wait = retryDelay

		req, err := newRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := d.client().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
		}

		statusErr := &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
		}
		if !retryable(resp.StatusCode) {
			return nil, statusErr
		}
		lastErr = statusErr
		if after, ok := retryAfter(resp.Header); ok {
			wait = after
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", d.MaxRetries+1, lastErr)
}

func (d *Doer) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// retryAfter reads Retry-After as (possibly fractional) seconds.
func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
