// Package ephemeris supplies the time-aligned position arrays the constraint
// engine evaluates against: observer, Sun, Moon and other bodies in one
// geocentric inertial frame (km), plus quantities derived from them.
package ephemeris

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/transform"
)

var (
	// ErrNoVelocity is returned when the source carries positions only.
	ErrNoVelocity = errors.New("observer velocity not available")
	// ErrUnknownBody is returned for a body identifier the source cannot supply.
	ErrUnknownBody = errors.New("unknown body")
	// ErrBadIndices is returned for an index subset that is out of range or not
	// strictly increasing.
	ErrBadIndices = errors.New("invalid time indices")
	// ErrMismatch is returned when arrays are not aligned to the timestamps.
	ErrMismatch = errors.New("ephemeris arrays not aligned")
	// ErrTimeOrder is returned when timestamps are not strictly increasing.
	ErrTimeOrder = errors.New("timestamps not strictly increasing")
)

// Provider is the read-only view of an ephemeris for one evaluation. Every
// array it returns is index-aligned to Times(). Implementations must not
// mutate returned slices after handing them out.
type Provider interface {
	Times() []time.Time
	ObserverPositions() ([]geometry.Vec3, error)
	ObserverVelocities() ([]geometry.Vec3, error)
	SunPositions() ([]geometry.Vec3, error)
	MoonPositions() ([]geometry.Vec3, error)
	BodyPositions(id string) ([]geometry.Vec3, error)
	MoonIllumination() ([]float64, error)
	SubObserverLatLon() (lat, lon []float64, err error)
	TopocentricAltAz(raDeg, decDeg float64) ([]transform.Horizontal, error)
	BodyAltAz(id string) ([]transform.Horizontal, error)
}

// NAIF identifiers understood by every provider.
const (
	BodySun   = "sun"
	BodyMoon  = "moon"
	BodyEarth = "earth"
)

// CanonicalBody maps NAIF ids and common names onto the built-in body keys.
// Unrecognized ids are returned lowercased and trimmed.
func CanonicalBody(id string) string {
	s := strings.ToLower(strings.TrimSpace(id))
	switch s {
	case "10", "sun":
		return BodySun
	case "301", "moon", "luna":
		return BodyMoon
	case "399", "earth":
		return BodyEarth
	}
	return s
}

// Select returns a view of p restricted to indices. A nil slice returns p
// unchanged. Indices must be strictly increasing and within Times(). A
// *Series is copied down to the selected rows so that per-sample views stay
// cheap; other providers are wrapped and filtered on each call.
func Select(p Provider, indices []int) (Provider, error) {
	if indices == nil {
		return p, nil
	}
	n := len(p.Times())
	for k, i := range indices {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: index %d outside [0, %d)", ErrBadIndices, i, n)
		}
		if k > 0 && i <= indices[k-1] {
			return nil, fmt.Errorf("%w: index %d follows %d", ErrBadIndices, i, indices[k-1])
		}
	}
	idx := append([]int(nil), indices...)
	if s, ok := p.(*Series); ok {
		return s.slice(idx), nil
	}
	times := pick(p.Times(), idx)
	return &subset{p: p, idx: idx, times: times}, nil
}

type subset struct {
	p     Provider
	idx   []int
	times []time.Time
}

func pick[T any](src []T, idx []int) []T {
	out := make([]T, len(idx))
	for k, i := range idx {
		out[k] = src[i]
	}
	return out
}

func pickErr[T any](src []T, err error, idx []int) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return pick(src, idx), nil
}

func (s *subset) Times() []time.Time { return s.times }

func (s *subset) ObserverPositions() ([]geometry.Vec3, error) {
	v, err := s.p.ObserverPositions()
	return pickErr(v, err, s.idx)
}

func (s *subset) ObserverVelocities() ([]geometry.Vec3, error) {
	v, err := s.p.ObserverVelocities()
	return pickErr(v, err, s.idx)
}

func (s *subset) SunPositions() ([]geometry.Vec3, error) {
	v, err := s.p.SunPositions()
	return pickErr(v, err, s.idx)
}

func (s *subset) MoonPositions() ([]geometry.Vec3, error) {
	v, err := s.p.MoonPositions()
	return pickErr(v, err, s.idx)
}

func (s *subset) BodyPositions(id string) ([]geometry.Vec3, error) {
	v, err := s.p.BodyPositions(id)
	return pickErr(v, err, s.idx)
}

func (s *subset) MoonIllumination() ([]float64, error) {
	v, err := s.p.MoonIllumination()
	return pickErr(v, err, s.idx)
}

func (s *subset) SubObserverLatLon() ([]float64, []float64, error) {
	lat, lon, err := s.p.SubObserverLatLon()
	if err != nil {
		return nil, nil, err
	}
	return pick(lat, s.idx), pick(lon, s.idx), nil
}

func (s *subset) TopocentricAltAz(raDeg, decDeg float64) ([]transform.Horizontal, error) {
	v, err := s.p.TopocentricAltAz(raDeg, decDeg)
	return pickErr(v, err, s.idx)
}

func (s *subset) BodyAltAz(id string) ([]transform.Horizontal, error) {
	v, err := s.p.BodyAltAz(id)
	return pickErr(v, err, s.idx)
}
