package operation

import (
	"fmt"

	"github.com/viant/opflow/progress"
)

// QueueState describes where a Queue is in its lifecycle.
type QueueState int

const (
	// QueueIdle has no current operation; pending ones may exist.
	QueueIdle QueueState = iota
	// QueueActive is driving its current operation.
	QueueActive
	// QueueDone has run every operation it was given.
	QueueDone
	// QueueFailed stopped because its current operation returned an error.
	QueueFailed
)

func (s QueueState) String() string {
	switch s {
	case QueueIdle:
		return "idle"
	case QueueActive:
		return "active"
	case QueueDone:
		return "done"
	case QueueFailed:
		return "failed"
	}
	return fmt.Sprintf("QueueState(%d)", int(s))
}

// Queue runs operations strictly in order, each to its own completion, and
// exposes them as a single Operation.  Operations may be offered between
// ticks, including from within a running member.
type Queue struct {
	pending   []Operation
	current   Operation
	state     QueueState
	completed int
	err       error
	counter   StepCounter
	step      int
}

// NewQueue creates a queue holding ops in the given order.
func NewQueue(ops ...Operation) (*Queue, error) {
	ret := &Queue{pending: make([]Operation, 0, len(ops))}
	for i, op := range ops {
		if op == nil {
			return nil, fmt.Errorf("queue operation #%d is nil: %w", i, ErrInvalidArgument)
		}
		ret.pending = append(ret.pending, op)
	}
	return ret, nil
}

// Offer appends op to the tail of the queue.  Offering to a finished queue
// re-opens it.
func (q *Queue) Offer(op Operation) error {
	if op == nil {
		return fmt.Errorf("queue offer: %w", ErrInvalidArgument)
	}
	q.pending = append(q.pending, op)
	if q.state == QueueDone {
		q.state = QueueIdle
	}
	return nil
}

// Resume drives the current operation by one step, pulling the next pending
// operation when the current one finishes.  A failure of the current
// operation stops the queue; remaining operations are neither run nor
// discarded, so Cancel can still notify them.
func (q *Queue) Resume(run *RunContext) (Signal, error) {
	q.step = 0
	if q.state == QueueFailed {
		return Done(), q.err
	}
	if q.current == nil {
		q.current = q.poll()
	}
	if q.current != nil {
		q.state = QueueActive
		signal, err := q.current.Resume(run)
		q.step = q.counter.Read(q.current)
		if err != nil {
			q.current = nil
			q.state = QueueFailed
			q.err = err
			return Done(), err
		}
		switch signal.Kind() {
		case KindReplace:
			q.current = signal.Next(q.current)
			q.counter.Reset()
		case KindDone:
			q.completed++
			q.current = q.poll()
			q.counter.Reset()
		}
	}
	if q.current != nil {
		return Continue(), nil
	}
	q.state = QueueDone
	return Done(), nil
}

func (q *Queue) poll() Operation {
	if len(q.pending) == 0 {
		return nil
	}
	head := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return head
}

// Cancel cancels the current operation and every pending one.
func (q *Queue) Cancel() {
	if q.current != nil {
		q.current.Cancel()
	}
	for _, op := range q.pending {
		op.Cancel()
	}
}

// Opportunistic reports true when the queue holds at least one operation,
// counting the current one, and every held operation is opportunistic.
// Finished operations are not considered and a failed queue never is.
func (q *Queue) Opportunistic() bool {
	if q.state == QueueFailed {
		return false
	}
	if q.current == nil && len(q.pending) == 0 {
		return false
	}
	if q.current != nil && !q.current.Opportunistic() {
		return false
	}
	for _, op := range q.pending {
		if !op.Opportunistic() {
			return false
		}
	}
	return true
}

// AddStatusMessages reports the position of the current operation followed
// by its own messages.  Without a current operation nothing is added.
func (q *Queue) AddStatusMessages(status *Status) {
	if q.current == nil {
		return
	}
	total := q.completed + 1 + len(q.pending)
	status.Add("Operation %d of %d", q.completed+1, total)
	q.current.AddStatusMessages(status)
}

// Progress splits progress evenly between finished, current and pending
// operations.
func (q *Queue) Progress() progress.Progress {
	parts := make([]progress.Progress, 0, q.completed+1+len(q.pending))
	for i := 0; i < q.completed; i++ {
		parts = append(parts, progress.Completed())
	}
	if q.current != nil {
		parts = append(parts, q.current.Progress())
	}
	for _, op := range q.pending {
		parts = append(parts, op.Progress())
	}
	return progress.Split(parts...)
}

// State returns the lifecycle state.
func (q *Queue) State() QueueState { return q.state }

// Len returns the number of operations not yet finished, including the
// current one.
func (q *Queue) Len() int {
	n := len(q.pending)
	if q.current != nil {
		n++
	}
	return n
}

// Completed returns the number of operations that finished.
func (q *Queue) Completed() int { return q.completed }

// Affected returns the units affected by the operation resumed in the most
// recent step, so a queue can be wrapped by AffectedFuture.
func (q *Queue) Affected() int { return q.step }

// Err returns the failure that stopped the queue, if any.
func (q *Queue) Err() error { return q.err }
