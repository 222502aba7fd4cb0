// Package clock is the time source of tick budgets, event stamps and job
// timestamps.  Tests swap it with Set.
package clock

import (
	"sync"
	"time"
)

var (
	mux     sync.RWMutex
	nowFunc = time.Now
)

// Now returns the current time of the installed source.
func Now() time.Time {
	mux.RLock()
	fn := nowFunc
	mux.RUnlock()
	return fn()
}

// Since returns the time elapsed since t according to Now.
func Since(t time.Time) time.Duration { return Now().Sub(t) }

// Set installs fn as the time source and returns a function restoring the
// previous one.
func Set(fn func() time.Time) (restore func()) {
	mux.Lock()
	previous := nowFunc
	nowFunc = fn
	mux.Unlock()
	return func() {
		mux.Lock()
		nowFunc = previous
		mux.Unlock()
	}
}

// Manual is a time source that only moves when advanced.
type Manual struct {
	mux sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mux.Lock()
	m.now = m.now.Add(d)
	m.mux.Unlock()
}
