package operation

import (
	"context"
	"time"

	"github.com/viant/opflow/internal/clock"
)

// RunContext carries the execution budget of the current tick.  It is owned by
// the driver; operations must not retain it after Resume returns.
type RunContext struct {
	ctx      context.Context
	deadline time.Time
	limit    int
	steps    int
}

// RunOption customises a RunContext.
type RunOption func(r *RunContext)

// WithDeadline stops ShouldContinue once the deadline has passed.
func WithDeadline(deadline time.Time) RunOption {
	return func(r *RunContext) { r.deadline = deadline }
}

// WithBudget is a shortcut for WithDeadline(now + d).
func WithBudget(d time.Duration) RunOption {
	return func(r *RunContext) {
		if d > 0 {
			r.deadline = clock.Now().Add(d)
		}
	}
}

// WithStepLimit bounds the number of Resume calls the driver makes with this
// context. Zero means no limit.
func WithStepLimit(limit int) RunOption {
	return func(r *RunContext) { r.limit = limit }
}

// NewRunContext creates a RunContext.  Without options the budget is
// unlimited and only ctx cancellation stops ShouldContinue.
func NewRunContext(ctx context.Context, options ...RunOption) *RunContext {
	if ctx == nil {
		ctx = context.Background()
	}
	ret := &RunContext{ctx: ctx}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Context returns the underlying context.
func (r *RunContext) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Deadline returns the tick deadline, if any.
func (r *RunContext) Deadline() (time.Time, bool) {
	if r == nil || r.deadline.IsZero() {
		return time.Time{}, false
	}
	return r.deadline, true
}

// ShouldContinue reports whether there is time left for more work.  Leaf
// operations check it inside their work loop, after doing at least one unit
// of work per Resume call so that every step makes progress.
func (r *RunContext) ShouldContinue() bool {
	if r == nil {
		return true
	}
	if r.ctx != nil && r.ctx.Err() != nil {
		return false
	}
	if !r.deadline.IsZero() && !clock.Now().Before(r.deadline) {
		return false
	}
	return true
}

// Step records one Resume call made by the driver.  It returns false, without
// recording anything, when the step limit or the time budget is exhausted.
// The first step is always granted so every tick makes progress.
func (r *RunContext) Step() bool {
	if r == nil {
		return true
	}
	if r.limit > 0 && r.steps >= r.limit {
		return false
	}
	if r.steps > 0 && !r.ShouldContinue() {
		return false
	}
	r.steps++
	return true
}

// Steps returns how many Resume calls were recorded.
func (r *RunContext) Steps() int {
	if r == nil {
		return 0
	}
	return r.steps
}
