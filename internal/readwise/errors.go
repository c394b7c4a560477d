package readwise

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("authentication failed: invalid token")
	ErrNotFound     = errors.New("document not found")
)

// RateLimitError is returned for 429 responses.
type RateLimitError struct {
	RetryAfter time.Duration
	// HasRetryAfter is false when the service sent no usable Retry-After.
	HasRetryAfter bool
}

func (e *RateLimitError) Error() string {
	if !e.HasRetryAfter {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// StatusError is any other non-2xx response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Code, e.Body)
}

func errorFromResponse(op string, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case http.StatusTooManyRequests:
		d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return fmt.Errorf("%s: %w", op, &RateLimitError{RetryAfter: d, HasRetryAfter: ok})
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// IsTransient reports whether a retry may succeed: network failures and 5xx
// responses. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusRequestTimeout
	}
	return true
}
