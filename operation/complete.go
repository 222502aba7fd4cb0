package operation

import (
	"context"
	"fmt"
)

// Complete drives op to completion in the calling goroutine, following
// Replace signals.  When ctx is done the current operation is cancelled and
// ctx.Err() is returned.  Use it where blocking is acceptable, for example in
// tests and command line tools.
func Complete(ctx context.Context, op Operation, options ...RunOption) error {
	if op == nil {
		return fmt.Errorf("complete: %w", ErrInvalidArgument)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for op != nil {
		if err := ctx.Err(); err != nil {
			op.Cancel()
			return err
		}
		run := NewRunContext(ctx, options...)
		signal, err := op.Resume(run)
		if err != nil {
			return err
		}
		op = signal.Next(op)
	}
	return nil
}
