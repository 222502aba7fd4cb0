package operation

import (
	"fmt"

	"github.com/viant/opflow/progress"
)

// Delegate wraps an operation and prefixes its status messages with a fixed
// description.
type Delegate struct {
	Description string
	operation   Operation
}

// NewDelegate wraps op.
func NewDelegate(description string, op Operation) (*Delegate, error) {
	if op == nil {
		return nil, fmt.Errorf("delegate %q: %w", description, ErrInvalidArgument)
	}
	return &Delegate{Description: description, operation: op}, nil
}

// Resume drives the wrapped operation, following its Replace signals.
func (d *Delegate) Resume(run *RunContext) (Signal, error) {
	if d.operation == nil {
		return Done(), nil
	}
	signal, err := d.operation.Resume(run)
	if err != nil {
		d.operation = nil
		return Done(), err
	}
	d.operation = signal.Next(d.operation)
	if d.operation == nil {
		return Done(), nil
	}
	return Continue(), nil
}

// Cancel cancels the wrapped operation.
func (d *Delegate) Cancel() {
	if d.operation != nil {
		d.operation.Cancel()
	}
}

// Opportunistic delegates to the wrapped operation.
func (d *Delegate) Opportunistic() bool {
	return d.operation != nil && d.operation.Opportunistic()
}

// AddStatusMessages adds the description, then the wrapped messages.
func (d *Delegate) AddStatusMessages(status *Status) {
	if d.Description != "" {
		status.Add(d.Description)
	}
	if d.operation != nil {
		d.operation.AddStatusMessages(status)
	}
}

// Progress delegates to the wrapped operation; complete once finished.
func (d *Delegate) Progress() progress.Progress {
	if d.operation == nil {
		return progress.Completed()
	}
	return d.operation.Progress()
}
