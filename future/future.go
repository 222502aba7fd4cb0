package future

import (
	"context"
	"sync"
)

// Future is resolved exactly once with a value and an optional error.  The
// zero value is not usable; use New.
type Future[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	value    T
	err      error
	resolved bool
	onDone   []func(T, error)
}

// New creates an unresolved future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve settles the future.  Only the first call has an effect; it returns
// false when the future was already resolved.
func (f *Future[T]) Resolve(value T, err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.value = value
	f.err = err
	f.resolved = true
	callbacks := f.onDone
	f.onDone = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(value, err)
	}
	return true
}

// Complete resolves the future successfully.
func (f *Future[T]) Complete(value T) bool {
	return f.Resolve(value, nil)
}

// Fail resolves the future with an error.  value may carry a partial result.
func (f *Future[T]) Fail(value T, err error) bool {
	return f.Resolve(value, err)
}

// Done returns a channel closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has been resolved.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the future is resolved or ctx is done.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek returns the resolved value without blocking; ok is false while the
// future is pending.
func (f *Future[T]) Peek() (value T, err error, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.resolved {
		return value, nil, false
	}
	return f.value, f.err, true
}

// OnDone registers fn to run after resolution.  When the future is already
// resolved fn runs immediately in the calling goroutine.
func (f *Future[T]) OnDone(fn func(T, error)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	if !f.resolved {
		f.onDone = append(f.onDone, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	fn(value, err)
}
