package mutation

import (
	"fmt"

	"github.com/viant/opflow/operation"
	"github.com/viant/opflow/progress"
)

// DefaultBatch is the number of cells edited before the run budget is checked.
const DefaultBatch = 64

// Fill sets every cell of a range to a value.  It reports the number of cells
// that actually changed in each step.
type Fill struct {
	operation.Base
	space         Space
	target        Range
	value         byte
	batch         int
	cursor        int
	changed       int
	total         int
	opportunistic bool
}

// FillOption customises a Fill.
type FillOption func(f *Fill)

// WithBatch sets the number of cells edited between budget checks.
func WithBatch(n int) FillOption {
	return func(f *Fill) {
		if n > 0 {
			f.batch = n
		}
	}
}

// AsOpportunistic marks the fill as safe to defer.
func AsOpportunistic() FillOption {
	return func(f *Fill) { f.opportunistic = true }
}

// NewFill creates a fill of target with value.
func NewFill(space Space, target Range, value byte, options ...FillOption) (*Fill, error) {
	if space == nil {
		return nil, fmt.Errorf("fill: space is nil: %w", operation.ErrInvalidArgument)
	}
	if err := target.validate(space); err != nil {
		return nil, fmt.Errorf("fill: %w", err)
	}
	ret := &Fill{space: space, target: target, value: value, batch: DefaultBatch, cursor: target.From}
	for _, opt := range options {
		opt(ret)
	}
	return ret, nil
}

// Resume edits at least one batch of cells, then keeps going while the run
// budget allows.
func (f *Fill) Resume(run *operation.RunContext) (operation.Signal, error) {
	f.changed = 0
	if f.Canceled() {
		return operation.Done(), nil
	}
	for f.cursor < f.target.To {
		end := min(f.cursor+f.batch, f.target.To)
		for ; f.cursor < end; f.cursor++ {
			if f.space.Set(f.cursor, f.value) {
				f.changed++
			}
		}
		if !run.ShouldContinue() || f.Canceled() {
			break
		}
	}
	f.total += f.changed
	if f.cursor >= f.target.To || f.Canceled() {
		return operation.Done(), nil
	}
	return operation.Continue(), nil
}

// Affected returns the cells changed by the last step.
func (f *Fill) Affected() int { return f.changed }

// Total returns the cells changed so far.
func (f *Fill) Total() int { return f.total }

// Opportunistic reports whether the fill was marked as deferrable.
func (f *Fill) Opportunistic() bool { return f.opportunistic }

// AddStatusMessages describes the fill position.
func (f *Fill) AddStatusMessages(status *operation.Status) {
	status.Add("Fill [%d,%d) with %d: %d cells visited", f.target.From, f.target.To, f.value, f.cursor-f.target.From)
}

// Progress returns the share of visited cells.
func (f *Fill) Progress() progress.Progress {
	return progress.Ratio(f.cursor-f.target.From, f.target.Len())
}
