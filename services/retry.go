package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"option-scout/observability"
)

// RetryConfig controls the exponential backoff applied to provider calls.
// Jitter is the fraction of each delay that is randomized; zero disables it.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         float64
}

// DefaultRetryConfig suits the quote and chain providers: a quick first
// retry, capped well under the client timeout.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	Jitter:         0.2,
}

// WithRetry runs fn until it succeeds, the attempts are exhausted, or the
// context is cancelled while waiting out a backoff.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	delay := config.InitialBackoff
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt >= config.MaxRetries {
			break
		}

		observability.Debug("provider call failed, retrying",
			"attempt", attempt+1,
			"max_retries", config.MaxRetries,
			"backoff", delay.String(),
			"error", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(jitterDelay(delay, config.Jitter)):
		}

		delay *= 2
		if delay > config.MaxBackoff {
			delay = config.MaxBackoff
		}
	}

	return fmt.Errorf("failed after %d retries: %w", config.MaxRetries, lastErr)
}

// jitterDelay spreads a delay by ±fraction so synchronized callers do not
// retry in lockstep.
func jitterDelay(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	spread := (rand.Float64()*2 - 1) * fraction * float64(d)
	return d + time.Duration(spread)
}
