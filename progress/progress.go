package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Progress is a read-only completion value.  It is either indeterminate or a
// fraction between 0 and 1.
type Progress struct {
	known    bool
	fraction float64
}

// Observable is implemented by anything that can report its progress.
type Observable interface {
	Progress() Progress
}

// Indeterminate returns a progress value with unknown completion.
func Indeterminate() Progress { return Progress{} }

// Completed returns a fully completed progress value.
func Completed() Progress { return Progress{known: true, fraction: 1} }

// Of returns a progress value for the given fraction, clamped to [0, 1].  NaN
// yields an indeterminate value.
func Of(fraction float64) Progress {
	if math.IsNaN(fraction) {
		return Indeterminate()
	}
	return Progress{known: true, fraction: math.Max(0, math.Min(1, fraction))}
}

// Ratio returns done/total as progress.  A non-positive total is complete.
func Ratio(done, total int) Progress {
	if total <= 0 {
		return Completed()
	}
	return Of(float64(done) / float64(total))
}

// IsIndeterminate reports whether completion is unknown.
func (p Progress) IsIndeterminate() bool { return !p.known }

// IsComplete reports whether the work is finished.
func (p Progress) IsComplete() bool { return p.known && p.fraction >= 1 }

// Fraction returns the completed fraction; zero when indeterminate.
func (p Progress) Fraction() float64 { return p.fraction }

func (p Progress) String() string {
	if !p.known {
		return "indeterminate"
	}
	return fmt.Sprintf("%.1f%%", p.fraction*100)
}

// MarshalJSON encodes the fraction, or null when indeterminate.
func (p Progress) MarshalJSON() ([]byte, error) {
	if !p.known {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(p.fraction, 'f', -1, 64)), nil
}

func (p *Progress) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Indeterminate()
		return nil
	}
	var fraction float64
	if err := json.Unmarshal(data, &fraction); err != nil {
		return fmt.Errorf("invalid progress %s: %w", data, err)
	}
	*p = Of(fraction)
	return nil
}

// Split combines parts of equal weight.  The result is indeterminate when any
// unfinished part is indeterminate; an empty split is complete.
func Split(parts ...Progress) Progress {
	if len(parts) == 0 {
		return Completed()
	}
	sum := 0.0
	for _, part := range parts {
		if part.IsComplete() {
			sum++
			continue
		}
		if part.IsIndeterminate() {
			return Indeterminate()
		}
		sum += part.fraction
	}
	return Of(sum / float64(len(parts)))
}

// SplitObservables combines the current progress of each observable.
func SplitObservables[T Observable](observables ...T) Progress {
	parts := make([]Progress, 0, len(observables))
	for _, o := range observables {
		parts = append(parts, o.Progress())
	}
	return Split(parts...)
}
