package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/opflow/internal/clock"
)

// Delta is an incremental counter change emitted by the driver.  Fields are
// signed and can therefore be either increments or decrements.
type Delta struct {
	Total     int
	Completed int
	Failed    int
	Canceled  int
	Running   int
	Pending   int
	Affected  int
}

// Tracker keeps aggregated job counters for a driver.  It is safe for
// concurrent use.
type Tracker struct {
	Name      string
	StartedAt time.Time

	TotalJobs     int
	CompletedJobs int
	FailedJobs    int
	CanceledJobs  int
	RunningJobs   int
	PendingJobs   int
	Affected      int

	mu       sync.Mutex
	onChange func(Tracker)
}

// NewTracker creates a tracker.  onChange may be nil.
func NewTracker(name string, onChange func(Tracker)) *Tracker {
	return &Tracker{Name: name, StartedAt: clock.Now(), onChange: onChange}
}

// Update applies d.  The onChange callback, if any, receives a copy of the
// counters outside the critical section so it may do slow work.
func (t *Tracker) Update(d Delta) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.TotalJobs += d.Total
	t.CompletedJobs += d.Completed
	t.FailedJobs += d.Failed
	t.CanceledJobs += d.Canceled
	t.RunningJobs += d.Running
	t.PendingJobs += d.Pending
	t.Affected += d.Affected
	snapshot := t.copyLocked()
	cb := t.onChange
	t.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (t *Tracker) Snapshot() Tracker {
	if t == nil {
		return Tracker{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

// Progress returns the share of finished jobs.
func (t *Tracker) Progress() Progress {
	s := t.Snapshot()
	return Ratio(s.CompletedJobs+s.FailedJobs+s.CanceledJobs, s.TotalJobs)
}

// OnChange replaces the change callback.  nil disables it.
func (t *Tracker) OnChange(cb func(Tracker)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.onChange = cb
	t.mu.Unlock()
}

func (t *Tracker) copyLocked() Tracker {
	return Tracker{
		Name:          t.Name,
		StartedAt:     t.StartedAt,
		TotalJobs:     t.TotalJobs,
		CompletedJobs: t.CompletedJobs,
		FailedJobs:    t.FailedJobs,
		CanceledJobs:  t.CanceledJobs,
		RunningJobs:   t.RunningJobs,
		PendingJobs:   t.PendingJobs,
		Affected:      t.Affected,
	}
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds t in a derived context.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, t)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Tracker, bool) {
	if ctx == nil {
		return nil, false
	}
	t, ok := ctx.Value(trackerKey).(*Tracker)
	return t, ok
}

// UpdateCtx applies d to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if t, ok := FromContext(ctx); ok {
		t.Update(d)
	}
}
