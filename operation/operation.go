package operation

import (
	"fmt"

	"github.com/viant/opflow/progress"
)

// Operation is a resumable unit of work.
//
// Resume performs one bounded increment of work and returns a Signal telling
// the driver whether to call again, stop, or drive another operation instead.
// Cancel records a request to stop; it must not block and composites pass it
// on to the operations they own.  Resume may still be called after Cancel, so
// implementations check for cancellation and finish promptly.
type Operation interface {
	Resume(run *RunContext) (Signal, error)

	Cancel()

	// Opportunistic reports whether the operation may be deferred or dropped
	// without correctness loss.
	Opportunistic() bool

	AddStatusMessages(status *Status)

	Progress() progress.Progress
}

// Affecting is implemented by operations that count the units affected by
// their most recent Resume step.
type Affecting interface {
	Affected() int
}

// CumulativeAffecting is implemented by operations that only expose a running
// total of affected units.
type CumulativeAffecting interface {
	AffectedTotal() int
}

// Status collects human-readable status lines.
type Status struct {
	Messages []string
}

// Add appends a formatted line.
func (s *Status) Add(format string, args ...interface{}) {
	if s == nil {
		return
	}
	if len(args) == 0 {
		s.Messages = append(s.Messages, format)
		return
	}
	s.Messages = append(s.Messages, fmt.Sprintf(format, args...))
}

// Len returns the number of collected lines.
func (s *Status) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Messages)
}

// StatusOf collects the status messages of op.
func StatusOf(op Operation) []string {
	if op == nil {
		return nil
	}
	status := &Status{}
	op.AddStatusMessages(status)
	return status.Messages
}
