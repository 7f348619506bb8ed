// Package retry implements the exponential-backoff-with-jitter scheduler
// every provider client runs non-streaming requests and stream (re)connects
// through.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/harborwave/llmkit/pkg/llmerr"
)

// Config controls the backoff schedule.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool

	// ShouldRetry decides whether a given error should trigger another
	// attempt. Defaults to llmerr.IsRetryable when nil.
	ShouldRetry func(error) bool

	// Rand supplies jitter randomness. Defaults to a process-global source;
	// tests inject a deterministic one for reproducible delays.
	Rand *rand.Rand

	// OnRetry, if set, is called before each wait between attempts so a
	// caller can log it without this package depending on a logging
	// interface directly.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns sensible defaults: 2 retries, 500ms initial delay
// doubling up to an 8s cap, with jitter.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Func is the operation Do retries.
type Func func(ctx context.Context) error

// Do runs fn, retrying on retryable failures with exponential backoff until
// cfg.MaxRetries is exhausted, the context is cancelled, or fn succeeds.
func Do(ctx context.Context, cfg Config, fn Func) error {
	if cfg.MaxRetries == 0 && cfg.InitialDelay == 0 {
		cfg = DefaultConfig()
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = llmerr.IsRetryable
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("context ended after %d attempts: %w", attempt, lastErr)
			}
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
		}

		delay := calculateDelay(attempt+1, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("context ended after %d attempts: %w", attempt+1, lastErr)
		}
	}
	return lastErr
}

// calculateDelay computes the backoff for the given 1-indexed attempt
// number, applying the multiplier, the max-delay cap, and (if enabled) a
// subtractive jitter of up to 25% (delay · (1 − U[0,0.25])), so the jittered
// delay never exceeds the computed backoff.
func calculateDelay(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		r := cfg.Rand
		if r == nil {
			r = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		delay *= 1 - 0.25*r.Float64()
	}
	return time.Duration(delay)
}

// sleep waits for d or until ctx is cancelled, using a single-token
// rate.Limiter as the wait primitive instead of a bare time.Sleep so the
// same cancellation-aware wait machinery backs both the retry scheduler
// here and any future caller-side pacing.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	lim := rate.NewLimiter(rate.Every(d), 1)
	// Drain the initial burst token so Wait actually blocks for ~d.
	lim.Allow()
	return lim.Wait(ctx)
}
