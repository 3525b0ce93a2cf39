package xerrors

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures exponential-backoff retry behavior.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the store busy/locked retry policy: up to 3
// retries after the first attempt, with exponential backoff from 50ms
// capped at 800ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     800 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// Retry executes fn with exponential backoff, retrying up to
// cfg.MaxRetries times on any error. Grounded on the teacher's
// internal/errors/retry.go, with jitter dropped since nothing in this
// codebase runs enough concurrent retrying writers to need thundering-herd
// protection (a single-process SQLite store, per spec §4.9).
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err != nil {
			lastErr = err
			if attempt >= cfg.MaxRetries {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// RetryWithResult is Retry for functions that also return a value.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var err error
		result, err = fn()
		if err != nil {
			lastErr = err
			if attempt >= cfg.MaxRetries {
				break
			}

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			continue
		}

		return result, nil
	}

	var zero T
	return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}
