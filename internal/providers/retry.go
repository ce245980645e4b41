package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/openpawz/pawgo/internal/retry"
)

// RetryConfig governs backoff for provider HTTP calls; the timing math lives
// in internal/retry, shared with the embedding bootstrapper.
type RetryConfig = retry.Config

// DefaultRetryConfig returns the standard provider retry policy.
func DefaultRetryConfig() RetryConfig {
	return retry.DefaultConfig()
}

// HTTPError wraps a non-2xx provider response.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// StatusCode satisfies retry.StatusError.
func (e *HTTPError) StatusCode() int { return e.Status }

// ParseRetryAfter parses a Retry-After header value (seconds or HTTP-date).
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// RetryDo runs fn with exponential backoff, retrying only on HTTPError with a
// retryable status code. Honors Retry-After when it exceeds the computed
// backoff delay.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var he *HTTPError
		retryable := errors.As(err, &he) && cfg.IsRetryableStatus(he.Status)
		if !retryable || attempt == cfg.MaxRetries {
			return zero, err
		}

		delay := cfg.Delay(attempt)
		if he.RetryAfter > delay {
			delay = he.RetryAfter
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
