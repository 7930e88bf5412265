// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// Config defines a bounded retry policy.
type Config struct {
	MaxAttempts    int           // Total attempts including the first one
	InitialBackoff time.Duration // Pause before the second attempt
	MaxBackoff     time.Duration // Cap on the pause
	Multiplier     float64       // Growth factor for subsequent pauses
}

// Once is the page-recovery policy: the first attempt plus a single retry.
func Once() Config {
	return Config{
		MaxAttempts: 2,
		Multiplier:  1,
	}
}

// RecoverFunc runs between a failed attempt and the next one, e.g. to reload
// a page. attempt is the 1-based number of the attempt that just failed.
type RecoverFunc func(ctx context.Context, attempt int, err error)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Retryable is implemented by errors that know whether another attempt can
// help. Errors that do not implement it are always retried.
type Retryable interface {
	Retryable() bool
}

// Do runs fn until it succeeds, returns a non-retryable error, the context ends,
// or MaxAttempts is reached. onRetry (optional) runs before each retry.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error, onRetry RecoverFunc) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Debug().Int("attempts", attempt).Msg("Retry succeeded")
			}
			return nil
		}
		lastErr = err

		var r Retryable
		if errors.As(err, &r) && !r.Retryable() {
			log.Debug().Err(err).Msg("Error is not retryable")
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := calculateBackoff(attempt-1, cfg)
		log.Debug().
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying")

		if backoff > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if onRetry != nil {
			onRetry(ctx, attempt, err)
		}
	}

	log.Warn().
		Int("attempts", cfg.MaxAttempts).
		Err(lastErr).
		Msg("Max retry attempts exceeded")

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, cfg.MaxAttempts, lastErr)
}

// calculateBackoff returns InitialBackoff * Multiplier^n, capped at MaxBackoff.
func calculateBackoff(n int, cfg Config) time.Duration {
	if cfg.InitialBackoff <= 0 {
		return 0
	}
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 1
	}
	backoff := float64(cfg.InitialBackoff) * math.Pow(mult, float64(n))
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}
