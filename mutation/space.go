package mutation

import (
	"fmt"
	"sync"
)

// Space is an addressable store of byte cells.
type Space interface {
	Len() int
	Get(index int) byte
	// Set stores value and reports whether the cell changed.
	Set(index int, value byte) bool
}

// Buffer is an in-memory Space.  It is safe for concurrent use so that tests
// and status readers can inspect it while a driver mutates it.
type Buffer struct {
	mu    sync.RWMutex
	cells []byte
}

// NewBuffer allocates a zeroed buffer of size cells.
func NewBuffer(size int) *Buffer {
	return &Buffer{cells: make([]byte, size)}
}

// Len returns the number of cells.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cells)
}

// Get returns the value at index.
func (b *Buffer) Get(index int) byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cells[index]
}

// Set stores value at index.
func (b *Buffer) Set(index int, value byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cells[index] == value {
		return false
	}
	b.cells[index] = value
	return true
}

// Count returns how many cells hold value.
func (b *Buffer) Count(value byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ret := 0
	for _, c := range b.cells {
		if c == value {
			ret++
		}
	}
	return ret
}

// Range is a half-open interval [From, To) of cell indexes.
type Range struct {
	From int
	To   int
}

// Len returns the number of cells in the range.
func (r Range) Len() int {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From
}

func (r Range) validate(space Space) error {
	if r.From < 0 || r.To > space.Len() || r.From > r.To {
		return fmt.Errorf("range [%d,%d) outside space of %d cells", r.From, r.To, space.Len())
	}
	return nil
}
