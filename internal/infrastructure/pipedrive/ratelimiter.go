package pipedrive

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter spaces outgoing API calls so the remote's per-token budget
// is never exhausted by a large push batch. One token per interval, no
// bursting.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	logger   zerolog.Logger
}

// NewRateLimiter creates a limiter at the default 10 requests per second.
func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return NewRateLimiterWithInterval(100*time.Millisecond, logger)
}

// NewRateLimiterWithInterval creates a limiter with a custom spacing.
func NewRateLimiterWithInterval(interval time.Duration, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{interval: interval, logger: logger}
}

// Wait blocks until the next request slot or the context ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	next := rl.last.Add(rl.interval)
	if next.Before(now) {
		next = now
	}
	rl.last = next
	rl.mu.Unlock()

	delay := time.Until(next)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryConfig controls retry behavior on throttled or transient failures.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry settings used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}
}

// backoff returns the delay before the given attempt, doubling each time
// up to the configured ceiling.
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return d
}
