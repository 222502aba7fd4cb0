package mutation

import (
	"fmt"

	"github.com/viant/opflow/operation"
	"github.com/viant/opflow/progress"
)

// Copy copies a range of cells from one space to an offset in another.  It
// only exposes a running total of changed cells.  Within a single Buffer an
// overlapping range is copied back to front when the destination lies after
// the source, so every cell is read before it is overwritten.  Distinct Space
// values sharing storage are always copied front to back.
type Copy struct {
	operation.Base
	source   Space
	dest     Space
	from     Range
	offset   int
	batch    int
	cursor   int
	backward bool
	total    int
}

// NewCopy creates a copy of from (in source) to dest starting at offset.
func NewCopy(source Space, from Range, dest Space, offset int) (*Copy, error) {
	if source == nil || dest == nil {
		return nil, fmt.Errorf("copy: space is nil: %w", operation.ErrInvalidArgument)
	}
	if err := from.validate(source); err != nil {
		return nil, fmt.Errorf("copy source: %w", err)
	}
	if err := (Range{From: offset, To: offset + from.Len()}).validate(dest); err != nil {
		return nil, fmt.Errorf("copy destination: %w", err)
	}
	ret := &Copy{source: source, dest: dest, from: from, offset: offset, batch: DefaultBatch, cursor: from.From}
	ret.backward = sameBuffer(source, dest) && offset > from.From && offset < from.To
	return ret, nil
}

func sameBuffer(a, b Space) bool {
	left, ok := a.(*Buffer)
	if !ok {
		return false
	}
	right, ok := b.(*Buffer)
	return ok && left == right
}

// index maps the cursor to the source cell copied at that position.
func (c *Copy) index(cursor int) int {
	if c.backward {
		return c.from.To - 1 - (cursor - c.from.From)
	}
	return cursor
}

// Resume copies at least one batch of cells.
func (c *Copy) Resume(run *operation.RunContext) (operation.Signal, error) {
	if c.Canceled() {
		return operation.Done(), nil
	}
	for c.cursor < c.from.To {
		end := min(c.cursor+c.batch, c.from.To)
		for ; c.cursor < end; c.cursor++ {
			i := c.index(c.cursor)
			if c.dest.Set(c.offset+i-c.from.From, c.source.Get(i)) {
				c.total++
			}
		}
		if !run.ShouldContinue() || c.Canceled() {
			break
		}
	}
	if c.cursor >= c.from.To || c.Canceled() {
		return operation.Done(), nil
	}
	return operation.Continue(), nil
}

// AffectedTotal returns the cells changed so far.
func (c *Copy) AffectedTotal() int { return c.total }

// AddStatusMessages describes the copy position.
func (c *Copy) AddStatusMessages(status *operation.Status) {
	status.Add("Copy [%d,%d) to %d: %d cells copied", c.from.From, c.from.To, c.offset, c.cursor-c.from.From)
}

// Progress returns the share of copied cells.
func (c *Copy) Progress() progress.Progress {
	return progress.Ratio(c.cursor-c.from.From, c.from.Len())
}
