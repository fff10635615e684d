package constraint

import (
	"errors"
	"math"
	"testing"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
)

func TestEclipseSample(t *testing.T) {
	sun := geometry.Vec3{auKm, 0, 0}
	tests := []struct {
		name      string
		obs       geometry.Vec3
		umbraOnly bool
		violated  bool
		minSev    float64
		maxSev    float64
	}{
		{"on axis in umbra", geometry.Vec3{-7000, 0, 0}, true, true, 1 - 1e-9, 1},
		{"sunlit side", geometry.Vec3{7000, 0, 0}, false, false, 0, 0},
		{"terminator plane", geometry.Vec3{0, 7000, 0}, false, false, 0, 0},
		{"penumbra only, umbra requested", geometry.Vec3{-7000, 6400, 0}, true, false, 0, 0},
		{"penumbra", geometry.Vec3{-7000, 6400, 0}, false, true, 0.01, 0.5},
		{"outside penumbra", geometry.Vec3{-7000, 6500, 0}, false, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := eclipseSample(tt.obs, sun, tt.umbraOnly)
			if s.Violated != tt.violated {
				t.Fatalf("violated = %v, want %v", s.Violated, tt.violated)
			}
			if tt.violated && (s.Severity < tt.minSev || s.Severity > tt.maxSev) {
				t.Errorf("severity = %v, want in [%v, %v]", s.Severity, tt.minSev, tt.maxSev)
			}
		})
	}

	if s := eclipseSample(geometry.Vec3{-7000, 0, 0}, geometry.Vec3{}, false); s.Violated {
		t.Error("degenerate Sun position should not report shadow")
	}
}

// Halfway between the umbra and penumbra edges the penumbra severity is
// 0.25.
func TestEclipsePenumbraMidpoint(t *testing.T) {
	sun := geometry.Vec3{auKm, 0, 0}
	depth := 7000.0
	sh, ok := shadowAt(geometry.Vec3{-depth, 0, 0}, sun)
	if !ok {
		t.Fatal("expected shadow geometry")
	}
	mid := (sh.umbra + sh.penumbra) / 2
	s := eclipseSample(geometry.Vec3{-depth, mid, 0}, sun, false)
	if !s.Violated || !approx(s.Severity, 0.25, 1e-6) {
		t.Errorf("midpoint sample = %+v, want severity 0.25", s)
	}
	if sh.umbra >= earthRadiusKm || sh.penumbra <= earthRadiusKm {
		t.Errorf("umbra %.1f should shrink and penumbra %.1f grow with depth", sh.umbra, sh.penumbra)
	}
}

func TestEclipseEvaluatorBroadcasts(t *testing.T) {
	eph := &ephemeris.Series{
		Epochs:   minuteTimes(4),
		Observer: []geometry.Vec3{{7000, 0, 0}, {-7000, 0, 0}, {-7000, 100, 0}, {0, 7000, 0}},
		Sun:      []geometry.Vec3{{auKm, 0, 0}, {auKm, 0, 0}, {auKm, 0, 0}, {auKm, 0, 0}},
		Moon:     make([]geometry.Vec3, 4),
	}
	ev := mustBuild(t, EclipseConfig{})
	if ev.Name() != "Eclipse(umbra)" {
		t.Errorf("name = %q", ev.Name())
	}
	res := mustEvaluate(t, ev, eph, 0, 0)
	if got := windowIndices(t, res); !sameWindows(got, [][2]int{{1, 2}}) {
		t.Errorf("windows = %v", got)
	}
	if res.Violations[0].Description != "Observer in umbra" {
		t.Errorf("description = %q", res.Violations[0].Description)
	}

	matrix, err := ev.InConstraintBatch(eph, []float64{0, 120, 240}, []float64{0, 45, -45}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{true, false, false, true}
	for j, row := range matrix {
		for i := range row {
			if row[i] != want[i] {
				t.Errorf("row %d col %d = %v, want %v", j, i, row[i], want[i])
			}
		}
	}
	// Rows must not alias each other.
	matrix[0][0] = false
	if !matrix[1][0] {
		t.Error("batch rows share storage")
	}

	off := false
	if name := mustBuild(t, EclipseConfig{UmbraOnly: &off}).Name(); name != "Eclipse(umbra+penumbra)" {
		t.Errorf("penumbra name = %q", name)
	}
}

func TestOrbitPole(t *testing.T) {
	// Equatorial orbit: the pole is +z.
	eph := constantSeries(3, geometry.Vec3{7000, 0, 0}, geometry.Vec3{0, 7.5, 0}, geometry.Vec3{auKm, 0, 0})
	ev := mustBuild(t, OrbitPoleConfig{MinAngle: 10})
	if ev.Name() != "OrbitPoleConstraint(min=10.0°)" {
		t.Errorf("name = %q", ev.Name())
	}

	res := mustEvaluate(t, ev, eph, 0, 85)
	if res.AllSatisfied {
		t.Fatal("target 5° from the pole should violate")
	}
	if !approx(res.Violations[0].MaxSeverity, 1, 1e-9) {
		t.Errorf("severity = %v, want capped at 1", res.Violations[0].MaxSeverity)
	}
	if got := mustEvaluate(t, ev, eph, 0, -85); !got.AllSatisfied {
		t.Error("south pole is 175° away and should pass without earth_limb_pole")
	}

	// Earth radius 65.67° + 30 - 90 = 5.67°, applied to both poles.
	limb := mustBuild(t, OrbitPoleConfig{MinAngle: 30, EarthLimbPole: true})
	for _, dec := range []float64{88, -88} {
		if res := mustEvaluate(t, limb, eph, 0, dec); res.AllSatisfied {
			t.Errorf("dec %v: 2° from a pole should violate the 5.67° limb pole", dec)
		}
	}
	if res := mustEvaluate(t, limb, eph, 0, 80); !res.AllSatisfied {
		t.Error("10° from the pole should clear the limb pole threshold")
	}
}

func TestOrbitConstraintsNeedVelocity(t *testing.T) {
	eph := constantSeries(3, geometry.Vec3{7000, 0, 0}, geometry.Vec3{}, geometry.Vec3{auKm, 0, 0})
	for _, c := range []Config{OrbitPoleConfig{MinAngle: 10}, OrbitRamConfig{MinAngle: 10}} {
		ev := mustBuild(t, c)
		if _, err := ev.Evaluate(eph, 0, 0, nil); !errors.Is(err, ephemeris.ErrNoVelocity) {
			t.Errorf("%s Evaluate: err = %v, want ErrNoVelocity", ev.Name(), err)
		}
		if _, err := ev.InConstraintBatch(eph, []float64{0}, []float64{0}, nil); !errors.Is(err, ephemeris.ErrNoVelocity) {
			t.Errorf("%s batch: err = %v, want ErrNoVelocity", ev.Name(), err)
		}
	}
}

func TestOrbitRam(t *testing.T) {
	eph := constantSeries(2, geometry.Vec3{7000, 0, 0}, geometry.Vec3{0, 7.5, 0}, geometry.Vec3{auKm, 0, 0})
	ev := mustBuild(t, OrbitRamConfig{MinAngle: 20, MaxAngle: ptr(150)})
	if res := mustEvaluate(t, ev, eph, 90, 0); res.AllSatisfied {
		t.Error("target along the ram direction should violate")
	}
	if res := mustEvaluate(t, ev, eph, 0, 0); !res.AllSatisfied {
		t.Error("target 90° from ram should pass")
	}
	res := mustEvaluate(t, ev, eph, 270, 0)
	if res.AllSatisfied {
		t.Fatal("target in the wake should exceed max")
	}
	if !approx(res.Violations[0].MaxSeverity, 0.2, 1e-9) {
		t.Errorf("wake severity = %v, want 0.2", res.Violations[0].MaxSeverity)
	}
}

func TestSAA(t *testing.T) {
	f := newFakeSky(5)
	f.lat = []float64{-30, -30, 10, -60, -25}
	f.lon = []float64{-45, -10, -45, -45, -80}
	poly := [][2]float64{{-90, -50}, {0, -50}, {0, 0}, {-90, 0}}

	ev := mustBuild(t, SAAConfig{Polygon: poly})
	if ev.Name() != "SAAConstraint(vertices=4)" {
		t.Errorf("name = %q", ev.Name())
	}
	res := mustEvaluate(t, ev, f, 10, 10)
	if got := windowIndices(t, res); !sameWindows(got, [][2]int{{0, 1}, {4, 4}}) {
		t.Errorf("windows = %v", got)
	}
	if got := res.Violations[0].Description; got != "In SAA region (lat: -30.00°, lon: -45.00°)" {
		t.Errorf("description = %q", got)
	}
	if res.Violations[0].MaxSeverity != 1 {
		t.Errorf("severity = %v, want 1", res.Violations[0].MaxSeverity)
	}
}

func TestSAAFromGroundSeries(t *testing.T) {
	// A site inside the anomaly; the sub-observer point is the site itself.
	times := minuteTimes(3)
	site, err := ephemeris.NewGround(groundSite(-25, -45), times)
	if err != nil {
		t.Fatal(err)
	}
	poly := [][2]float64{{-90, -50}, {0, -50}, {0, 0}, {-90, 0}}
	res := mustEvaluate(t, mustBuild(t, SAAConfig{Polygon: poly}), site, 0, 0)
	if res.AllSatisfied || math.Abs(res.TotalViolationDuration()-120) > 1e-9 {
		t.Errorf("ground site inside polygon: %+v", res.Violations)
	}
}
