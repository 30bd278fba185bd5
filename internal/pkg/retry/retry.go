// Package retry runs an operation again after retryable failures, waiting an
// exponentially growing interval between attempts.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Config controls the retry loop.
type Config struct {
	// MaxRetries caps the number of additional attempts after the first one.
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait after every retry. Defaults to 2.
	BackoffFactor float64

	// Jitter adds up to one extra backoff interval of random delay.
	Jitter bool
}

// DefaultConfig waits one second before the first retry.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     5,
		InitialBackoff: time.Second,
		MaxBackoff:     16 * time.Second,
		BackoffFactor:  2,
	}
}

// IsRetryableFunc decides whether err warrants another attempt.
type IsRetryableFunc func(error) bool

// OnRetryFunc is invoked before each wait. attempt starts at 1.
type OnRetryFunc func(attempt int, err error, backoff time.Duration)

// Do calls fn until it succeeds, returns a non-retryable error, the retry
// budget is spent, or ctx is done. The last error is wrapped on exhaustion.
func Do[T any](ctx context.Context, cfg Config, isRetryable IsRetryableFunc, onRetry OnRetryFunc, fn func() (T, error)) (T, error) {
	var zero T
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 10 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff
			if cfg.Jitter {
				wait += time.Duration(rand.Int64N(int64(backoff)))
			}
			if onRetry != nil {
				onRetry(attempt, lastErr, wait)
			}
			if err := Sleep(ctx, wait); err != nil {
				return zero, fmt.Errorf("context done while retrying: %w", err)
			}
			backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, err
		}
		if isRetryable == nil || !isRetryable(err) {
			return zero, err
		}
	}
	return zero, fmt.Errorf("gave up after %d retries: %w", cfg.MaxRetries, lastErr)
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
