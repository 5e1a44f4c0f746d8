package resilience

import (
	"context"
	"fmt"
	"time"
)

// OpTimeoutError reports that a named operation exceeded its deadline. It
// unwraps to context.DeadlineExceeded so callers can match with errors.Is.
type OpTimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *OpTimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded %v deadline", e.Op, e.Limit)
}

func (e *OpTimeoutError) Unwrap() error { return context.DeadlineExceeded }

// WithTimeout runs fn under a derived context cancelled after limit. A
// limit of zero or less means no deadline. The corpus-load phase runs under
// this so a hung filesystem or database cannot stall a scan run forever;
// fn keeps running in the background after a timeout, so it must honor its
// context.
func WithTimeout(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(opCtx) }()

	select {
	case err := <-done:
		return err
	case <-opCtx.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", op, err)
		}
		return &OpTimeoutError{Op: op, Limit: limit}
	}
}
