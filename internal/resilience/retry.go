// Package resilience provides fault-tolerance primitives shared by the outbox
// flusher, the chain event client's reconnect loop, and the marketplace HTTP
// client: exponential backoff with jitter, and a circuit breaker.
package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures exponential backoff with jitter.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // 0-1, fraction of delay to randomize
}

// DefaultRetryConfig returns the outbox flusher's default backoff shape
// (spec §4.5: base * 2^attempt, capped, ±20% jitter).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 1 * time.Second,
		MaxDelay:     5 * time.Minute,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// Retry executes fn with exponential backoff until it succeeds, attempts are
// exhausted, or ctx is cancelled.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(AddJitter(delay, cfg.Jitter)):
			}
			delay = NextDelay(delay, cfg)
		}
	}
	return lastErr
}

// NextDelay computes the next backoff delay, capped at cfg.MaxDelay.
func NextDelay(current time.Duration, cfg RetryConfig) time.Duration {
	next := time.Duration(float64(current) * cfg.Multiplier)
	if next > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return next
}

// AddJitter randomizes a delay by +/- jitter fraction.
func AddJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	delta := float64(d) * jitter
	return d + time.Duration(rand.Float64()*delta*2-delta)
}
