package operation

// StepCounter reads the units affected by single Resume steps.  Cumulative
// totals are turned into per-step differences; call Reset whenever the
// driven operation changes.
type StepCounter struct {
	last int
}

// Read returns the units op affected in the step it just took.
func (c *StepCounter) Read(op Operation) int {
	switch actual := op.(type) {
	case Affecting:
		if n := actual.Affected(); n > 0 {
			return n
		}
	case CumulativeAffecting:
		total := actual.AffectedTotal()
		delta := total - c.last
		c.last = total
		if delta > 0 {
			return delta
		}
	}
	return 0
}

// Reset forgets the last cumulative total.
func (c *StepCounter) Reset() { c.last = 0 }
