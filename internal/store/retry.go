package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryConfig configures exponential backoff for store writes that hit a
// transient "busy/locked" condition (spec §7: "Store busy/locked ... Retry
// with exponential backoff (≤3)"). Adapted from the teacher's model-download
// retry helper (internal/embed/retry.go), generalized from a network-fetch
// concern to a SQLite-busy concern.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig allows up to 3 retries after the first attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     800 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// isBusyError reports whether err looks like a transient SQLite
// busy/locked condition rather than a real failure.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// withRetry runs fn, retrying with exponential backoff only on busy/locked
// errors; any other error returns immediately.
func withRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !isBusyError(err) {
			return err
		}
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
	}

	return fmt.Errorf("store busy after %d retries: %w", cfg.MaxRetries, lastErr)
}
