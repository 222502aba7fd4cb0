package operation

import (
	"fmt"

	"github.com/viant/opflow/future"
	"github.com/viant/opflow/progress"
)

// AffectedFuture decorates an operation, sums the units it affects across
// every Resume step and resolves a future with the total once the wrapped
// operation is done.
//
// Per-step counts are read from the operation that was resumed: Affecting
// values are added as reported, CumulativeAffecting totals are converted to
// the difference from the previous reading of the same operation.  When the
// wrapped operation fails the future is rejected with that error and the
// partial sum; when cancelled it is rejected with ErrCanceled.
type AffectedFuture struct {
	operation Operation
	sink      *future.Future[int]
	counter   StepCounter
	affected  int
	step      int
}

// NewAffectedFuture wraps op and resolves sink on completion.
func NewAffectedFuture(op Operation, sink *future.Future[int]) (*AffectedFuture, error) {
	if op == nil {
		return nil, fmt.Errorf("affected future operation is nil: %w", ErrInvalidArgument)
	}
	if sink == nil {
		return nil, fmt.Errorf("affected future sink is nil: %w", ErrInvalidArgument)
	}
	return &AffectedFuture{operation: op, sink: sink}, nil
}

// Resume drives the wrapped operation by one step.
func (a *AffectedFuture) Resume(run *RunContext) (Signal, error) {
	if a.operation == nil {
		a.step = 0
		return Done(), nil
	}
	resumed := a.operation
	signal, err := resumed.Resume(run)
	delta := a.counter.Read(resumed)
	a.affected += delta
	a.step = delta
	if err != nil {
		a.operation = nil
		a.sink.Fail(a.affected, err)
		return Done(), err
	}
	if signal.Kind() != KindContinue {
		a.operation = signal.Next(resumed)
		a.counter.Reset()
	}
	if a.operation != nil {
		return Continue(), nil
	}
	a.sink.Complete(a.affected)
	return Done(), nil
}

// Cancel cancels the wrapped operation and rejects the future with
// ErrCanceled.  The decorator is finished afterwards.
func (a *AffectedFuture) Cancel() {
	if a.operation == nil {
		return
	}
	a.operation.Cancel()
	a.operation = nil
	a.sink.Fail(a.affected, ErrCanceled)
}

// Opportunistic delegates to the wrapped operation.
func (a *AffectedFuture) Opportunistic() bool {
	if a.operation == nil {
		return false
	}
	return a.operation.Opportunistic()
}

// AddStatusMessages reports the running total, then the wrapped operation's
// messages.
func (a *AffectedFuture) AddStatusMessages(status *Status) {
	status.Add("Affected %d", a.affected)
	if a.operation != nil {
		a.operation.AddStatusMessages(status)
	}
}

// Progress delegates to the wrapped operation; complete once finished.
func (a *AffectedFuture) Progress() progress.Progress {
	if a.operation == nil {
		return progress.Completed()
	}
	return a.operation.Progress()
}

// Affected returns the units affected by the most recent step, which lets
// decorators nest.
func (a *AffectedFuture) Affected() int { return a.step }

// Total returns the sum accumulated so far.
func (a *AffectedFuture) Total() int { return a.affected }

// Future returns the completion sink.
func (a *AffectedFuture) Future() *future.Future[int] { return a.sink }
