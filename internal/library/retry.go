package library

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds mutation retries. Sleep is injectable so tests can
// simulate rate limiting without waiting.
type RetryPolicy struct {
	MaxAttempts           int
	BaseDelay             time.Duration
	DefaultRateLimitDelay time.Duration
	Sleep                 SleepFunc
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:           3,
	BaseDelay:             time.Second,
	DefaultRateLimitDelay: 60 * time.Second,
	Sleep:                 SleepContext,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	out := p
	if out.MaxAttempts < 1 {
		out.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if out.BaseDelay <= 0 {
		out.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if out.DefaultRateLimitDelay <= 0 {
		out.DefaultRateLimitDelay = DefaultRetryPolicy.DefaultRateLimitDelay
	}
	if out.Sleep == nil {
		out.Sleep = SleepContext
	}
	return out
}

// backoff returns the delay before retry number attempt (1-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

func SleepContext(ctx context.Context, d time.Duration) error {
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
