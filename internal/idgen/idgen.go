package idgen

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	mux     sync.RWMutex
	newFunc = func() string { return uuid.New().String() }
)

// New returns a new globally unique identifier.
func New() string {
	mux.RLock()
	fn := newFunc
	mux.RUnlock()
	return fn()
}

// NewWithPrefix returns prefix-<id>.  Whitespace and path separators in the
// prefix are replaced so the result is usable as a file name.
func NewWithPrefix(prefix string) string {
	prefix = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, prefix)
	if prefix == "" {
		return New()
	}
	return prefix + "-" + New()
}

// Set installs fn as the generator and returns a function restoring the
// previous one.
func Set(fn func() string) (restore func()) {
	mux.Lock()
	previous := newFunc
	newFunc = fn
	mux.Unlock()
	return func() {
		mux.Lock()
		newFunc = previous
		mux.Unlock()
	}
}
