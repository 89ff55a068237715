// file: internal/provider/invoke.go
// version: 1.0.0
// guid: 93a5d6e0-1c48-4f7b-8e2a-6d0f3b9c7a15

package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is returned when a call does not finish within its timeout.
	ErrTimeout = errors.New("provider call timed out")
	// ErrAdapterPanic wraps a panic recovered from an adapter.
	ErrAdapterPanic = errors.New("provider adapter panicked")
)

type outcome[T any] struct {
	value T
	err   error
}

// Invoke runs fn in its own goroutine and waits for it, the timeout, or ctx,
// whichever comes first. fn receives a context cancelled on return so a
// cooperative adapter can stop early; a late result is dropped.
func Invoke[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// Buffered so the goroutine never blocks after we stop listening.
	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("%w: %v", ErrAdapterPanic, r)}
			}
		}()
		v, err := fn(callCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		return res.value, res.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, callCtx.Err()
	}
}
