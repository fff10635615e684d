package constraint

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrTimeNotEvaluated is returned by InConstraint for a time that is not in
// the evaluated timestamp sequence.
var ErrTimeNotEvaluated = errors.New("time not in evaluated sequence")

// Window is one contiguous run of violated samples. Start and End are both
// sampled timestamps and both inclusive.
type Window struct {
	Start       time.Time `json:"start_time"`
	End         time.Time `json:"end_time"`
	MaxSeverity float64   `json:"max_severity"`
	Description string    `json:"description"`
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// VisibilityWindow is one contiguous run of satisfied samples.
type VisibilityWindow struct {
	Start           time.Time `json:"start_time"`
	End             time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Result is the outcome of evaluating one constraint against one target.
// It is immutable once returned; every query derives from Violations.
type Result struct {
	Violations     []Window    `json:"violations"`
	AllSatisfied   bool        `json:"all_satisfied"`
	ConstraintName string      `json:"constraint_name"`
	Times          []time.Time `json:"times"`
}

func newResult(name string, times []time.Time, windows []Window) *Result {
	if windows == nil {
		windows = []Window{}
	}
	return &Result{
		Violations:     windows,
		AllSatisfied:   len(windows) == 0,
		ConstraintName: name,
		Times:          times,
	}
}

// TotalViolationDuration is the sum of (End - Start) over all windows, in
// seconds. A single-sample window contributes zero: this measures time
// between samples, not sample count times step.
func (r *Result) TotalViolationDuration() float64 {
	var total float64
	for _, w := range r.Violations {
		total += w.End.Sub(w.Start).Seconds()
	}
	return total
}

// InConstraint reports whether the constraint is satisfied at t. t must be
// one of the evaluated timestamps exactly; anything else is
// ErrTimeNotEvaluated.
func (r *Result) InConstraint(t time.Time) (bool, error) {
	i := sort.Search(len(r.Times), func(k int) bool { return !r.Times[k].Before(t) })
	if i == len(r.Times) || !r.Times[i].Equal(t) {
		return false, fmt.Errorf("%w: %s", ErrTimeNotEvaluated, t.Format(time.RFC3339Nano))
	}
	for _, w := range r.Violations {
		if w.Contains(t) {
			return false, nil
		}
	}
	return true, nil
}

// ConstraintArray returns one flag per evaluated timestamp, true where no
// violation window covers it.
func (r *Result) ConstraintArray() []bool {
	out := make([]bool, len(r.Times))
	w := 0
	for i, t := range r.Times {
		for w < len(r.Violations) && r.Violations[w].End.Before(t) {
			w++
		}
		out[i] = w == len(r.Violations) || !r.Violations[w].Contains(t)
	}
	return out
}

// VisibilityWindows returns the complement of the violation windows: each
// maximal run of satisfied timestamps.
func (r *Result) VisibilityWindows() []VisibilityWindow {
	mask := r.ConstraintArray()
	var out []VisibilityWindow
	for i := 0; i < len(mask); {
		if !mask[i] {
			i++
			continue
		}
		j := i
		for j+1 < len(mask) && mask[j+1] {
			j++
		}
		out = append(out, VisibilityWindow{
			Start:           r.Times[i],
			End:             r.Times[j],
			DurationSeconds: r.Times[j].Sub(r.Times[i]).Seconds(),
		})
		i = j + 1
	}
	return out
}
