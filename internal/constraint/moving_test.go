package constraint

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
)

func TestEvaluateMoving(t *testing.T) {
	ev := mustBuild(t, SunConfig{MinAngle: 20})
	eph := sunAtAngles(make([]float64, 5))

	tests := []struct {
		name    string
		ras     []float64
		windows [][2]int
		maxSev  []float64
		desc    []string
	}{
		{
			name: "stays clear",
			ras:  []float64{30, 40, 50, 60, 70},
		},
		{
			name:    "passes close and recedes",
			ras:     []float64{30, 15, 5, 15, 30},
			windows: [][2]int{{1, 3}},
			maxSev:  []float64{0.75},
			desc:    []string{"Target within 5.0° of Sun (min allowed: 20.0°)"},
		},
		{
			name:    "still close at the end",
			ras:     []float64{30, 30, 10, 5, 5},
			windows: [][2]int{{2, 4}},
			maxSev:  []float64{0.75},
			desc:    []string{"Target too close to Sun (min allowed: 20.0°)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decs := make([]float64, len(tt.ras))
			res, err := ev.EvaluateMoving(eph, tt.ras, decs, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got := windowIndices(t, res.Result); !sameWindows(got, tt.windows) {
				t.Fatalf("windows = %v, want %v", got, tt.windows)
			}
			if res.AllSatisfied != (len(tt.windows) == 0) {
				t.Errorf("AllSatisfied = %v", res.AllSatisfied)
			}
			for i, w := range res.Violations {
				if !approx(w.MaxSeverity, tt.maxSev[i], 1e-6) {
					t.Errorf("window %d severity = %v, want %v", i, w.MaxSeverity, tt.maxSev[i])
				}
				if w.Description != tt.desc[i] {
					t.Errorf("window %d description = %q, want %q", i, w.Description, tt.desc[i])
				}
			}
			if !reflect.DeepEqual(res.RAs, tt.ras) || len(res.Decs) != len(decs) {
				t.Errorf("positions not echoed: ras %v decs %v", res.RAs, res.Decs)
			}
			if res.ConstraintName != ev.Name() {
				t.Errorf("name = %q", res.ConstraintName)
			}
		})
	}
}

func TestEvaluateMovingFixedTargetMatchesEvaluate(t *testing.T) {
	eph := sunAtAngles(sunAngles)
	for _, c := range []Config{
		SunConfig{MinAngle: 20},
		SunConfig{MinAngle: 0, MaxAngle: ptr(20)},
		NotConfig{Constraint: Spec{SunConfig{MinAngle: 20}}},
	} {
		ev := mustBuild(t, c)
		t.Run(ev.Name(), func(t *testing.T) {
			n := len(sunAngles)
			moving, err := ev.EvaluateMoving(eph, make([]float64, n), make([]float64, n), nil)
			if err != nil {
				t.Fatal(err)
			}
			fixed := mustEvaluate(t, ev, eph, 0, 0)
			if !reflect.DeepEqual(moving.Violations, fixed.Violations) {
				t.Errorf("moving windows %+v\nfixed windows %+v", moving.Violations, fixed.Violations)
			}
		})
	}
}

func TestEvaluateMovingShared(t *testing.T) {
	f := newFakeSky(3)
	f.sunAlt = altitudes(10, -20, 10)
	ev := mustBuild(t, DaytimeConfig{})

	res, err := ev.EvaluateMoving(f, []float64{0, 120, 240}, []float64{-10, 0, 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := windowIndices(t, res.Result), [][2]int{{0, 0}, {2, 2}}; !sameWindows(got, want) {
		t.Errorf("windows = %v, want %v", got, want)
	}
}

func TestEvaluateMovingIndices(t *testing.T) {
	ev := mustBuild(t, SunConfig{MinAngle: 20})
	eph := sunAtAngles(make([]float64, 6))

	res, err := ev.EvaluateMoving(eph, []float64{5, 50}, []float64{0, 0}, []int{1, 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Times) != 2 || !res.Times[1].Equal(eph.Epochs[4]) {
		t.Fatalf("times = %v", res.Times)
	}
	if got := res.ConstraintArray(); !reflect.DeepEqual(got, []bool{false, true}) {
		t.Errorf("mask = %v", got)
	}
}

func TestEvaluateMovingErrors(t *testing.T) {
	ev := mustBuild(t, SunConfig{MinAngle: 20})
	eph := sunAtAngles(make([]float64, 3))

	tests := []struct {
		name    string
		ras     []float64
		decs    []float64
		indices []int
		want    error
	}{
		{"ra/dec lengths differ", []float64{0, 0, 0}, []float64{0, 0}, nil, geometry.ErrLengthMismatch},
		{"fewer positions than times", []float64{0, 0}, []float64{0, 0}, nil, geometry.ErrLengthMismatch},
		{"positions not matching indices", []float64{0, 0, 0}, []float64{0, 0, 0}, []int{0, 2}, geometry.ErrLengthMismatch},
		{"declination out of range", []float64{0, 0, 0}, []float64{0, 95, 0}, nil, ErrInvalidTarget},
		{"bad indices", []float64{0}, []float64{0}, []int{7}, ephemeris.ErrBadIndices},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ev.EvaluateMoving(eph, tt.ras, tt.decs, tt.indices); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMovingBodyVisibility(t *testing.T) {
	eph := sunAtAngles(sunAngles)

	// The Moon sits in the Sun's direction in this geometry.
	res, err := MovingBodyVisibility(mustBuild(t, SunConfig{MinAngle: 20}), eph, "moon", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := windowIndices(t, res.Result), [][2]int{{0, len(sunAngles) - 1}}; !sameWindows(got, want) {
		t.Errorf("windows = %v, want %v", got, want)
	}
	for i, a := range sunAngles {
		if !approx(res.RAs[i], a, 1e-9) || !approx(res.Decs[i], 0, 1e-9) {
			t.Errorf("sample %d: body at (%v, %v), want (%v, 0)", i, res.RAs[i], res.Decs[i], a)
		}
	}

	sub, err := MovingBodyVisibility(mustBuild(t, SunConfig{MinAngle: 20}), eph, "301", []int{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.Times) != 2 || !sub.Times[0].Equal(eph.Epochs[2]) {
		t.Errorf("indexed times = %v", sub.Times)
	}

	if _, err := MovingBodyVisibility(mustBuild(t, SunConfig{MinAngle: 20}), eph, "pluto", nil); !errors.Is(err, ephemeris.ErrUnknownBody) {
		t.Errorf("unknown body: err = %v", err)
	}
}

func TestInConstraintAt(t *testing.T) {
	ev := mustBuild(t, SunConfig{MinAngle: 20})
	eph := sunAtAngles(sunAngles)
	times := eph.Times()

	got, err := ev.InConstraintAt(eph, 0, 0, []time.Time{times[8], times[0], times[8], times[3]})
	if err != nil {
		t.Fatal(err)
	}
	if want := []bool{true, false, true, true}; !reflect.DeepEqual(got, want) {
		t.Errorf("InConstraintAt = %v, want %v", got, want)
	}

	if _, err := ev.InConstraintAt(eph, 0, 0, []time.Time{times[1].Add(time.Second)}); !errors.Is(err, ErrTimeNotEvaluated) {
		t.Errorf("unsampled time: err = %v", err)
	}
	if got, err := ev.InConstraintAt(eph, 0, 0, nil); err != nil || len(got) != 0 {
		t.Errorf("no times: %v, %v", got, err)
	}
}
