package operation

import "fmt"

// SignalKind tells the driver what to do after a Resume step.
type SignalKind int

const (
	// KindContinue asks the driver to call Resume again on the same operation.
	KindContinue SignalKind = iota
	// KindDone reports that the operation has no more work.
	KindDone
	// KindReplace asks the driver to resume a different operation from now on.
	KindReplace
)

func (k SignalKind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindDone:
		return "done"
	case KindReplace:
		return "replace"
	}
	return fmt.Sprintf("SignalKind(%d)", int(k))
}

// Signal is the result of a single Resume step.
type Signal struct {
	kind SignalKind
	next Operation
}

// Continue returns a signal asking to be resumed again.
func Continue() Signal { return Signal{kind: KindContinue} }

// Done returns a terminal signal.
func Done() Signal { return Signal{kind: KindDone} }

// Replace hands control over to next.  A nil next is the same as Done.
func Replace(next Operation) Signal {
	if next == nil {
		return Done()
	}
	return Signal{kind: KindReplace, next: next}
}

// Kind returns the signal kind.
func (s Signal) Kind() SignalKind { return s.kind }

// IsDone reports whether the signal is terminal.
func (s Signal) IsDone() bool { return s.kind == KindDone }

// Next returns the operation that should be driven after a step that returned
// s from current.  It returns nil once the work is finished.
func (s Signal) Next(current Operation) Operation {
	switch s.kind {
	case KindDone:
		return nil
	case KindReplace:
		return s.next
	}
	return current
}

func (s Signal) String() string {
	return s.kind.String()
}
