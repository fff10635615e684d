package ephemeris

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/transform"
)

// Series is a fully materialized ephemeris: every array is held in memory
// and index-aligned to Times. It is the in-memory table form callers can
// fill directly, and what the Ground and Orbit sources produce.
type Series struct {
	Epochs     []time.Time                `json:"times"`
	Observer   []geometry.Vec3            `json:"observer"`
	Velocity   []geometry.Vec3            `json:"velocity,omitempty"`
	Sun        []geometry.Vec3            `json:"sun"`
	Moon       []geometry.Vec3            `json:"moon"`
	Bodies     map[string][]geometry.Vec3 `json:"bodies,omitempty"`
	LatDeg     []float64                  `json:"lat_deg,omitempty"`
	LonDeg     []float64                  `json:"lon_deg,omitempty"`
	Illuminate []float64                  `json:"moon_illumination,omitempty"`

	mu   sync.Mutex
	gmst []float64
}

// Validate checks alignment and ordering. Optional arrays (velocity, lat/lon,
// illumination, bodies) are checked only when present.
func (s *Series) Validate() error {
	n := len(s.Epochs)
	for i := 1; i < n; i++ {
		if !s.Epochs[i].After(s.Epochs[i-1]) {
			return fmt.Errorf("%w: index %d (%s) is not after %s", ErrTimeOrder, i,
				s.Epochs[i].Format(time.RFC3339Nano), s.Epochs[i-1].Format(time.RFC3339Nano))
		}
	}
	check := func(name string, got int, optional bool) error {
		if optional && got == 0 {
			return nil
		}
		if got != n {
			return fmt.Errorf("%w: %s has %d samples, want %d", ErrMismatch, name, got, n)
		}
		return nil
	}
	if err := check("observer", len(s.Observer), false); err != nil {
		return err
	}
	if err := check("sun", len(s.Sun), false); err != nil {
		return err
	}
	if err := check("moon", len(s.Moon), false); err != nil {
		return err
	}
	if err := check("velocity", len(s.Velocity), true); err != nil {
		return err
	}
	if err := check("lat_deg", len(s.LatDeg), true); err != nil {
		return err
	}
	if len(s.LatDeg) != len(s.LonDeg) {
		return fmt.Errorf("%w: lat_deg has %d samples, lon_deg %d", ErrMismatch, len(s.LatDeg), len(s.LonDeg))
	}
	if err := check("moon_illumination", len(s.Illuminate), true); err != nil {
		return err
	}
	for id, b := range s.Bodies {
		if err := check("body "+id, len(b), false); err != nil {
			return err
		}
	}
	return nil
}

// Times returns the timestamp sequence.
func (s *Series) Times() []time.Time { return s.Epochs }

// ObserverPositions returns the observer's geocentric position.
func (s *Series) ObserverPositions() ([]geometry.Vec3, error) { return s.Observer, nil }

// ObserverVelocities returns the observer's inertial velocity (km/s), or
// ErrNoVelocity when the series was built from positions only.
func (s *Series) ObserverVelocities() ([]geometry.Vec3, error) {
	if len(s.Velocity) == 0 && len(s.Epochs) > 0 {
		return nil, ErrNoVelocity
	}
	return s.Velocity, nil
}

// SunPositions returns the geocentric Sun position.
func (s *Series) SunPositions() ([]geometry.Vec3, error) { return s.Sun, nil }

// MoonPositions returns the geocentric Moon position.
func (s *Series) MoonPositions() ([]geometry.Vec3, error) { return s.Moon, nil }

// BodyPositions resolves id (NAIF number or name) to a position array.
func (s *Series) BodyPositions(id string) ([]geometry.Vec3, error) {
	switch key := CanonicalBody(id); key {
	case BodySun:
		return s.Sun, nil
	case BodyMoon:
		return s.Moon, nil
	case BodyEarth:
		return make([]geometry.Vec3, len(s.Epochs)), nil
	default:
		if b, ok := s.Bodies[id]; ok {
			return b, nil
		}
		if b, ok := s.Bodies[key]; ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownBody, id)
	}
}

// MoonIllumination returns the illuminated fraction of the Moon's disc as
// seen by the observer. A supplied array wins; otherwise it is derived from
// the Sun-Moon phase angle, (1 - cos(phase))/2.
func (s *Series) MoonIllumination() ([]float64, error) {
	if len(s.Illuminate) > 0 {
		return s.Illuminate, nil
	}
	return Illumination(s.Observer, s.Sun, s.Moon), nil
}

// SubObserverLatLon returns the geodetic latitude and longitude (degrees)
// beneath the observer.
func (s *Series) SubObserverLatLon() ([]float64, []float64, error) {
	if len(s.LatDeg) > 0 {
		return s.LatDeg, s.LonDeg, nil
	}
	gmst := s.sidereal()
	lat := make([]float64, len(s.Observer))
	lon := make([]float64, len(s.Observer))
	for i, r := range s.Observer {
		g := transform.SubPoint(r, gmst[i])
		lat[i], lon[i] = g.LatDeg, g.LonDeg
	}
	return lat, lon, nil
}

// TopocentricAltAz returns the altitude/azimuth of a fixed RA/Dec direction
// in the observer's local horizon at each time.
func (s *Series) TopocentricAltAz(raDeg, decDeg float64) ([]transform.Horizontal, error) {
	dir := geometry.RADecToUnit(raDeg, decDeg)
	gmst := s.sidereal()
	out := make([]transform.Horizontal, len(s.Observer))
	for i, r := range s.Observer {
		out[i] = transform.HorizontalFromInertial(r, dir, gmst[i])
	}
	return out, nil
}

// BodyAltAz returns the altitude/azimuth of a body as seen by the observer.
func (s *Series) BodyAltAz(id string) ([]transform.Horizontal, error) {
	body, err := s.BodyPositions(id)
	if err != nil {
		return nil, err
	}
	gmst := s.sidereal()
	out := make([]transform.Horizontal, len(s.Observer))
	for i, r := range s.Observer {
		out[i] = transform.HorizontalFromInertial(r, body[i].Sub(r), gmst[i])
	}
	return out, nil
}

// sidereal returns GMST per timestamp, computing it on first use.
func (s *Series) sidereal() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.gmst) != len(s.Epochs) {
		s.gmst = transform.GMSTSeries(s.Epochs)
	}
	return s.gmst
}

// Prepare validates the series and precomputes shared per-time quantities.
func (s *Series) Prepare() error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.sidereal()
	return nil
}

// slice copies the rows at idx into a new Series. Optional arrays stay
// absent, and GMST is carried over when it has already been computed.
func (s *Series) slice(idx []int) *Series {
	rows := func(src []geometry.Vec3) []geometry.Vec3 {
		if len(src) == 0 {
			return nil
		}
		return pick(src, idx)
	}
	scalars := func(src []float64) []float64 {
		if len(src) == 0 {
			return nil
		}
		return pick(src, idx)
	}
	out := &Series{
		Epochs:     pick(s.Epochs, idx),
		Observer:   rows(s.Observer),
		Velocity:   rows(s.Velocity),
		Sun:        rows(s.Sun),
		Moon:       rows(s.Moon),
		LatDeg:     scalars(s.LatDeg),
		LonDeg:     scalars(s.LonDeg),
		Illuminate: scalars(s.Illuminate),
	}
	if len(s.Bodies) > 0 {
		out.Bodies = make(map[string][]geometry.Vec3, len(s.Bodies))
		for id, b := range s.Bodies {
			out.Bodies[id] = pick(b, idx)
		}
	}
	s.mu.Lock()
	if len(s.gmst) == len(s.Epochs) && len(s.gmst) > 0 {
		out.gmst = scalars(s.gmst)
	}
	s.mu.Unlock()
	return out
}

// Illumination derives the Moon's illuminated fraction from the phase angle
// between the Sun and Moon directions seen from the observer.
func Illumination(observer, sun, moon []geometry.Vec3) []float64 {
	out := make([]float64, len(observer))
	for i := range observer {
		toSun := sun[i].Sub(observer[i])
		toMoon := moon[i].Sub(observer[i])
		phase := geometry.SeparationDeg(toSun, toMoon) * math.Pi / 180
		out[i] = (1 - math.Cos(phase)) / 2
	}
	return out
}
