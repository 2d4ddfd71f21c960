package database

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"contentflow/internal/middleware"
	"contentflow/internal/models"

	"github.com/sethvargo/go-retry"
)

// LinearBackoff waits delay, 2*delay, 3*delay, ... between attempts.
func LinearBackoff(delay time.Duration) retry.Backoff {
	var attempt atomic.Int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n := attempt.Add(1)
		return time.Duration(n) * delay, false
	})
}

// Retry runs fn up to attempts times with linear backoff. Validation and
// not-found errors are returned at once; anything else is treated as
// transient until the attempts run out.
func Retry(ctx context.Context, attempts int, delay time.Duration, op string, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	tries := 0
	backoff := retry.WithMaxRetries(uint64(attempts-1), LinearBackoff(delay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		tries++
		err := fn(ctx)
		if err == nil || !transient(err) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "database operation failed",
			slog.String("operation", op),
			slog.Int("attempt", tries),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()),
		)
		return retry.RetryableError(err)
	})
}

// RetryValue is Retry for operations that produce a value.
func RetryValue[T any](ctx context.Context, attempts int, delay time.Duration, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, attempts, delay, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !models.IsNotFound(err) && !models.IsValidation(err)
}
