package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/logger"
)

// MaxAttempts is the per-item attempt budget
const MaxAttempts = 3

// ErrExhausted is wrapped by the error Do returns after the last attempt failed
var ErrExhausted = errors.New("retry attempts exhausted")

// Operation is a single attempt
type Operation func(ctx context.Context) error

// BackoffFunc returns the wait after a failed attempt (1-based) and whether
// the failure is retryable at all.
type BackoffFunc func(kind igerrors.Kind, attempt int) (time.Duration, bool)

// SleepFunc waits for d or until ctx ends
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds retry configuration
type Config struct {
	// MaxAttempts defaults to MaxAttempts when zero
	MaxAttempts int
	Backoff     BackoffFunc
	Sleep       SleepFunc
	// OnRetry is called before each back-off wait
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// Do runs op until it succeeds, fails with a non-retryable error, runs out
// of attempts or ctx ends. A rate-limit failure consumes an attempt like any
// other. No wait follows the final attempt unless it was rate limited, in
// which case the cooldown is still served before returning.
func Do(ctx context.Context, op Operation, cfg Config) error {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = wait
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err

		kind := igerrors.KindOf(err)
		var delay time.Duration
		retryable := false
		if cfg.Backoff != nil {
			delay, retryable = cfg.Backoff(kind, attempt)
		} else {
			retryable = igerrors.IsRetryable(kind)
		}
		if !retryable {
			return err
		}
		final := attempt == maxAttempts
		if final && kind != igerrors.KindRateLimited {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		msg := "retrying operation"
		if final {
			msg = "rate limited on final attempt, cooling down"
		}
		log.WarnWithFields(msg, map[string]interface{}{
			"attempt":      attempt,
			"kind":         string(kind),
			"error":        err.Error(),
			"delay":        delay,
			"max_attempts": maxAttempts,
		})

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, maxAttempts, lastErr)
}

// DoWithResult runs an operation returning a value with the same policy as Do
func DoWithResult[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg Config) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)
	return result, err
}

// IsExhausted reports whether err came from running out of attempts
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
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
