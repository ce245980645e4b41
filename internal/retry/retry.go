// Package retry implements exponential backoff with jitter and a per-endpoint
// circuit breaker for outbound calls to model providers and the embedding
// runtime.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config controls backoff timing and which failures are worth retrying.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	RetryableStatus map[int]bool
}

// DefaultConfig returns the standard backoff policy: 3 retries, 500ms base,
// 30s cap, jitter ±25%.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		RetryableStatus: map[int]bool{
			429: true, 500: true, 502: true, 503: true, 504: true, 529: true,
		},
	}
}

// IsRetryableStatus reports whether an HTTP status code should trigger a retry.
func (c Config) IsRetryableStatus(code int) bool {
	return c.RetryableStatus[code]
}

// Delay computes the backoff delay for the given attempt (0-indexed), applying
// exponential growth capped at MaxDelay and ±25% jitter.
func (c Config) Delay(attempt int) time.Duration {
	d := c.BaseDelay << uint(attempt)
	if d <= 0 || d > c.MaxDelay {
		d = c.MaxDelay
	}
	jitter := float64(d) * 0.25
	offset := (rand.Float64()*2 - 1) * jitter
	result := time.Duration(float64(d) + offset)
	if result < 0 {
		result = 0
	}
	return result
}

// StatusError is implemented by provider errors that carry an HTTP status code.
type StatusError interface {
	error
	StatusCode() int
}

// Do runs fn, retrying on errors that satisfy StatusError with a retryable
// code, up to cfg.MaxRetries additional attempts. It stops early if ctx is
// cancelled or the breaker is open.
func Do(ctx context.Context, cfg Config, breaker *Breaker, fn func(ctx context.Context) error) error {
	if breaker != nil && !breaker.Allow() {
		return ErrBreakerOpen
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			return nil
		}

		var se StatusError
		retryable := errors.As(lastErr, &se) && cfg.IsRetryableStatus(se.StatusCode())
		if !retryable || attempt == cfg.MaxRetries {
			if breaker != nil {
				breaker.RecordFailure()
			}
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Delay(attempt)):
		}
	}
	return lastErr
}

// ErrBreakerOpen is returned by Do when the circuit breaker rejects the call.
var ErrBreakerOpen = errors.New("retry: circuit breaker open")
