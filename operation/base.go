package operation

import (
	"sync/atomic"

	"github.com/viant/opflow/progress"
)

// Base provides default behaviour for leaf operations.  Embed it and
// implement Resume.
type Base struct {
	canceled atomic.Bool
}

// Cancel records the cancellation request.
func (b *Base) Cancel() { b.canceled.Store(true) }

// Canceled reports whether Cancel was called.
func (b *Base) Canceled() bool { return b.canceled.Load() }

// Opportunistic returns false.
func (b *Base) Opportunistic() bool { return false }

// AddStatusMessages adds nothing.
func (b *Base) AddStatusMessages(*Status) {}

// Progress returns an indeterminate value.
func (b *Base) Progress() progress.Progress { return progress.Indeterminate() }
