package host

import (
	"context"
	"fmt"
	"time"
)

type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

func (te *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", te.Operation, te.Duration)
}

// withProcessingTimeout runs fn on its own goroutine and stops waiting when
// ctx ends or timeout elapses. fn keeps running to completion in that case,
// so it must release everything it allocates before returning.
func withProcessingTimeout[T any](ctx context.Context, timeout time.Duration, operation string, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- result{zero, fmt.Errorf("operation panicked: %v", r)}
			}
		}()

		value, err := fn()
		done <- result{value, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		if ctx.Err() == context.DeadlineExceeded {
			return zero, &TimeoutError{
				Operation: operation,
				Duration:  timeout,
			}
		}
		return zero, ctx.Err()
	}
}
