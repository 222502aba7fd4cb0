package operation

import "github.com/viant/opflow/progress"

// StepFunc advances work and reports whether it should be called again.
type StepFunc func(run *RunContext) (more bool, err error)

// ChainFunc advances work and returns the operation to drive next: Self to be
// called again, another operation to hand over control, or nil when finished.
type ChainFunc func(run *RunContext) (Operation, error)

// Self is returned by a ChainFunc that wants to be resumed again.
var Self Operation = self{}

type self struct{}

func (self) Resume(*RunContext) (Signal, error) { return Done(), nil }
func (self) Cancel()                            {}
func (self) Opportunistic() bool                { return false }
func (self) AddStatusMessages(*Status)          {}
func (self) Progress() progress.Progress        { return progress.Indeterminate() }

type funcOperation struct {
	Base
	step          StepFunc
	opportunistic bool
}

func (f *funcOperation) Resume(run *RunContext) (Signal, error) {
	if f.Canceled() {
		return Done(), nil
	}
	more, err := f.step(run)
	if err != nil {
		return Done(), err
	}
	if !more {
		return Done(), nil
	}
	return Continue(), nil
}

func (f *funcOperation) Opportunistic() bool { return f.opportunistic }

// FromFunc adapts a continue/stop style step function.  Once cancelled the
// function is not called again.
func FromFunc(step StepFunc) Operation {
	return &funcOperation{step: step}
}

// Opportunistically adapts step as an opportunistic operation.
func Opportunistically(step StepFunc) Operation {
	return &funcOperation{step: step, opportunistic: true}
}

type chainOperation struct {
	Base
	step ChainFunc
}

func (c *chainOperation) Resume(run *RunContext) (Signal, error) {
	if c.Canceled() {
		return Done(), nil
	}
	next, err := c.step(run)
	switch {
	case err != nil:
		return Done(), err
	case next == nil:
		return Done(), nil
	case next == Self:
		return Continue(), nil
	}
	return Replace(next), nil
}

// FromChain adapts a self-chaining step function.
func FromChain(step ChainFunc) Operation {
	return &chainOperation{step: step}
}
