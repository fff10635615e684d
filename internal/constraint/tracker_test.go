package constraint

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func pattern(flags ...bool) func(int) Sample {
	return func(i int) Sample { return Sample{Violated: flags[i], Severity: float64(i)} }
}

func TestTrackViolationsWindows(t *testing.T) {
	F, T := false, true
	tests := []struct {
		name  string
		flags []bool
		want  [][2]int
		final []bool
	}{
		{"mixed", []bool{F, F, T, T, T, F, T, F, F, T}, [][2]int{{2, 4}, {6, 6}, {9, 9}}, []bool{false, false, true}},
		{"none", []bool{F, F, F}, nil, nil},
		{"all", []bool{T, T, T, T}, [][2]int{{0, 3}}, []bool{true}},
		{"first only", []bool{T, F, F}, [][2]int{{0, 0}}, []bool{false}},
		{"single sample", []bool{T}, [][2]int{{0, 0}}, []bool{true}},
		{"empty", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times := minuteTimes(len(tt.flags))
			var finals []bool
			windows := TrackViolations(times, pattern(tt.flags...), func(start, end int, final bool) string {
				finals = append(finals, final)
				return "w"
			})
			if len(windows) != len(tt.want) {
				t.Fatalf("got %d windows, want %d", len(windows), len(tt.want))
			}
			for i, w := range windows {
				if !w.Start.Equal(times[tt.want[i][0]]) || !w.End.Equal(times[tt.want[i][1]]) {
					t.Errorf("window %d = [%s, %s], want indices %v", i, w.Start, w.End, tt.want[i])
				}
				if finals[i] != tt.final[i] {
					t.Errorf("window %d final = %v, want %v", i, finals[i], tt.final[i])
				}
				if w.End.Before(w.Start) {
					t.Errorf("window %d ends before it starts", i)
				}
				if i > 0 && !windows[i-1].End.Before(w.Start) {
					t.Errorf("window %d overlaps its predecessor", i)
				}
			}
		})
	}
}

func TestTrackViolationsSeverity(t *testing.T) {
	sev := []float64{0, 0.2, 0.9, 0.4, math.NaN(), 0, -3}
	viol := []bool{false, true, true, true, true, false, true}
	windows := TrackViolations(minuteTimes(len(sev)), func(i int) Sample {
		return Sample{Violated: viol[i], Severity: sev[i]}
	}, nil)
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	if windows[0].MaxSeverity != 0.9 {
		t.Errorf("max severity = %v, want 0.9", windows[0].MaxSeverity)
	}
	if windows[1].MaxSeverity != 0 {
		t.Errorf("negative severity reported as %v, want 0", windows[1].MaxSeverity)
	}
	if windows[0].Description != "" {
		t.Errorf("nil describer should leave description empty, got %q", windows[0].Description)
	}
}

func TestTrackViolationsDescribeRange(t *testing.T) {
	F, T := false, true
	var got [][2]int
	TrackViolations(minuteTimes(6), pattern(F, T, T, F, T, T), func(start, end int, _ bool) string {
		got = append(got, [2]int{start, end})
		return ""
	})
	want := [][2]int{{1, 2}, {4, 5}}
	if !sameWindows(got, want) {
		t.Errorf("describe ranges = %v, want %v", got, want)
	}
}

func resultFromFlags(flags []bool) *Result {
	times := minuteTimes(len(flags))
	return newResult("test", times, TrackViolations(times, pattern(flags...), nil))
}

func TestResultQueries(t *testing.T) {
	F, T := false, true
	flags := []bool{F, F, T, T, T, F, T, F, F, T}
	res := resultFromFlags(flags)
	before := *res
	before.Violations = append([]Window(nil), res.Violations...)
	before.Times = append([]time.Time(nil), res.Times...)

	if res.AllSatisfied {
		t.Error("AllSatisfied should be false")
	}
	// [2,4] spans two minutes; the single-sample windows add nothing.
	if got := res.TotalViolationDuration(); got != 120 {
		t.Errorf("TotalViolationDuration = %v, want 120", got)
	}

	mask := res.ConstraintArray()
	for i, v := range flags {
		if mask[i] == v {
			t.Errorf("mask[%d] = %v, want %v", i, mask[i], !v)
		}
		ok, err := res.InConstraint(res.Times[i])
		if err != nil {
			t.Fatalf("InConstraint(times[%d]): %v", i, err)
		}
		if ok != mask[i] {
			t.Errorf("InConstraint(times[%d]) = %v, mask says %v", i, ok, mask[i])
		}
	}

	if _, err := res.InConstraint(res.Times[0].Add(30 * time.Second)); !errors.Is(err, ErrTimeNotEvaluated) {
		t.Errorf("between samples: err = %v, want ErrTimeNotEvaluated", err)
	}
	if _, err := res.InConstraint(res.Times[0].Add(-time.Hour)); !errors.Is(err, ErrTimeNotEvaluated) {
		t.Errorf("before range: err = %v, want ErrTimeNotEvaluated", err)
	}

	// Queries are pure: repeating them gives the same answer and the result
	// itself is untouched.
	if a, b := res.TotalViolationDuration(), res.TotalViolationDuration(); a != b {
		t.Errorf("TotalViolationDuration not repeatable: %v then %v", a, b)
	}
	if again := res.ConstraintArray(); !reflect.DeepEqual(again, mask) {
		t.Errorf("ConstraintArray not repeatable: %v then %v", mask, again)
	}
	if !reflect.DeepEqual(*res, before) {
		t.Errorf("queries modified the result:\n got %+v\nwant %+v", *res, before)
	}
}

func TestResultVisibilityWindows(t *testing.T) {
	F, T := false, true
	res := resultFromFlags([]bool{F, F, T, T, T, F, T, F, F, T})
	vis := res.VisibilityWindows()
	want := [][2]int{{0, 1}, {5, 5}, {7, 8}}
	if len(vis) != len(want) {
		t.Fatalf("got %d visibility windows, want %d", len(vis), len(want))
	}
	for i, v := range vis {
		if !v.Start.Equal(res.Times[want[i][0]]) || !v.End.Equal(res.Times[want[i][1]]) {
			t.Errorf("visibility %d = [%s, %s], want %v", i, v.Start, v.End, want[i])
		}
		if v.DurationSeconds != v.End.Sub(v.Start).Seconds() {
			t.Errorf("visibility %d duration = %v", i, v.DurationSeconds)
		}
	}

	satisfied := resultFromFlags([]bool{F, F, F})
	if !satisfied.AllSatisfied || satisfied.TotalViolationDuration() != 0 {
		t.Error("all-satisfied result should have no violation time")
	}
	if got := satisfied.VisibilityWindows(); len(got) != 1 || got[0].DurationSeconds != 120 {
		t.Errorf("all-satisfied visibility = %+v", got)
	}
}

func TestResultJSON(t *testing.T) {
	res := resultFromFlags([]bool{false, true})
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"violations"`, `"start_time"`, `"end_time"`, `"max_severity"`, `"description"`, `"all_satisfied"`, `"constraint_name"`, `"times"`} {
		if !strings.Contains(string(b), key) {
			t.Errorf("JSON %s missing %s", b, key)
		}
	}

	empty := newResult("x", minuteTimes(2), nil)
	b, _ = json.Marshal(empty)
	if !strings.Contains(string(b), `"violations":[]`) {
		t.Errorf("empty violations should encode as [], got %s", b)
	}
}
