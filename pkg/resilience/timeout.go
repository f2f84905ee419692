package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a derived deadline and returns its value. If fn
// has not returned when the deadline passes, the call fails with
// context.DeadlineExceeded and fn's eventual result is discarded.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx2)
		done <- outcome{v, err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx2.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w (limit %v)", name, context.DeadlineExceeded, timeout)
	}
}
