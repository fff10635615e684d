package constraint

import (
	"math"
	"testing"
	"time"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/transform"
)

const auKm = 1.495978707e8

var epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func minuteTimes(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = epoch.Add(time.Duration(i) * time.Minute)
	}
	return out
}

// sunAtAngles places the Sun so that a target at RA=0, Dec=0 sees it at the
// given separations from a geocentric observer.
func sunAtAngles(angles []float64) *ephemeris.Series {
	n := len(angles)
	s := &ephemeris.Series{
		Epochs:   minuteTimes(n),
		Observer: make([]geometry.Vec3, n),
		Sun:      make([]geometry.Vec3, n),
		Moon:     make([]geometry.Vec3, n),
	}
	for i, a := range angles {
		s.Sun[i] = geometry.RADecToUnit(a, 0).Scale(auKm)
		s.Moon[i] = geometry.RADecToUnit(a, 0).Scale(384400)
	}
	return s
}

// constantSeries repeats one observer/Sun/Moon geometry n times.
func constantSeries(n int, obs, vel, sun geometry.Vec3) *ephemeris.Series {
	s := &ephemeris.Series{
		Epochs:   minuteTimes(n),
		Observer: make([]geometry.Vec3, n),
		Sun:      make([]geometry.Vec3, n),
		Moon:     make([]geometry.Vec3, n),
	}
	if !vel.IsZero() {
		s.Velocity = make([]geometry.Vec3, n)
	}
	for i := 0; i < n; i++ {
		s.Observer[i] = obs
		s.Sun[i] = sun
		s.Moon[i] = geometry.Vec3{0, 384400, 0}
		if s.Velocity != nil {
			s.Velocity[i] = vel
		}
	}
	return s
}

// fakeSky overrides the derived quantities of a Series with fixed arrays so
// horizon-based constraints can be driven directly.
type fakeSky struct {
	*ephemeris.Series
	targetAlt []transform.Horizontal
	sunAlt    []transform.Horizontal
	moonAlt   []transform.Horizontal
	lat, lon  []float64
}

func (f *fakeSky) TopocentricAltAz(float64, float64) ([]transform.Horizontal, error) {
	return f.targetAlt, nil
}

func (f *fakeSky) BodyAltAz(id string) ([]transform.Horizontal, error) {
	switch ephemeris.CanonicalBody(id) {
	case ephemeris.BodySun:
		return f.sunAlt, nil
	case ephemeris.BodyMoon:
		return f.moonAlt, nil
	}
	return nil, ephemeris.ErrUnknownBody
}

func (f *fakeSky) SubObserverLatLon() ([]float64, []float64, error) {
	return f.lat, f.lon, nil
}

func altitudes(alts ...float64) []transform.Horizontal {
	out := make([]transform.Horizontal, len(alts))
	for i, a := range alts {
		out[i] = transform.Horizontal{AltDeg: a, AzDeg: 180}
	}
	return out
}

func newFakeSky(n int) *fakeSky {
	return &fakeSky{Series: constantSeries(n, geometry.Vec3{}, geometry.Vec3{}, geometry.Vec3{auKm, 0, 0})}
}

func mustBuild(t *testing.T, c Config) Evaluator {
	t.Helper()
	ev, err := Build(c)
	if err != nil {
		t.Fatalf("Build(%T): %v", c, err)
	}
	return ev
}

func mustEvaluate(t *testing.T, ev Evaluator, eph ephemeris.Provider, ra, dec float64) *Result {
	t.Helper()
	res, err := ev.Evaluate(eph, ra, dec, nil)
	if err != nil {
		t.Fatalf("%s: Evaluate: %v", ev.Name(), err)
	}
	return res
}

// windowIndices maps each window back to its sample indices.
func windowIndices(t *testing.T, res *Result) [][2]int {
	t.Helper()
	index := make(map[time.Time]int, len(res.Times))
	for i, tm := range res.Times {
		index[tm] = i
	}
	out := make([][2]int, len(res.Violations))
	for k, w := range res.Violations {
		s, ok1 := index[w.Start]
		e, ok2 := index[w.End]
		if !ok1 || !ok2 {
			t.Fatalf("window %d bounds are not sampled timestamps", k)
		}
		out[k] = [2]int{s, e}
	}
	return out
}

func sameWindows(got, want [][2]int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func groundSite(lat, lon float64) transform.Geodetic {
	return transform.Geodetic{LatDeg: lat, LonDeg: lon}
}

func ptr(v float64) *float64 { return &v }

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }
