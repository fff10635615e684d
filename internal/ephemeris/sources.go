package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/propagation"
	"github.com/star/skywindow/internal/transform"
)

// ErrBadGrid is returned for an empty or inverted time range.
var ErrBadGrid = errors.New("invalid time grid")

// Grid returns timestamps from start to end inclusive, step apart. The last
// sample is the final step that does not pass end.
func Grid(start, end time.Time, step time.Duration) ([]time.Time, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step %s must be positive", ErrBadGrid, step)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrBadGrid,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	n := int(end.Sub(start)/step) + 1
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out, nil
}

// NewGround builds a series for an observer fixed to the Earth's surface.
// The inertial position is the site's fixed position rotated by GMST and
// the velocity is Earth rotation (ω × r). Sun and Moon come from the
// analytic series in this package.
func NewGround(site transform.Geodetic, times []time.Time) (*Series, error) {
	if site.LatDeg < -90 || site.LatDeg > 90 {
		return nil, fmt.Errorf("latitude %.4f outside [-90, 90]", site.LatDeg)
	}
	fixed := site.Fixed()
	gmst := transform.GMSTSeries(times)

	obs := make([]geometry.Vec3, len(times))
	vel := make([]geometry.Vec3, len(times))
	lat := make([]float64, len(times))
	lon := make([]float64, len(times))
	for i := range times {
		obs[i] = transform.FixedToInertial(fixed, gmst[i])
		vel[i] = transform.FixedPointVelocity(obs[i])
		lat[i], lon[i] = site.LatDeg, site.LonDeg
	}

	s := &Series{
		Epochs:   times,
		Observer: obs,
		Velocity: vel,
		Sun:      SunSeries(times),
		Moon:     MoonSeries(times),
		LatDeg:   lat,
		LonDeg:   lon,
		gmst:     gmst,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// SeriesPropagator propagates an SGP4 record over a time series.
type SeriesPropagator interface {
	Series(ctx context.Context, prop *propagation.SGP4Propagator, times []time.Time) ([]geometry.Vec3, []geometry.Vec3, error)
}

// NewOrbit builds a series for an Earth-orbiting observer from an SGP4
// record. TEME output is used as the inertial frame.
func NewOrbit(ctx context.Context, runner SeriesPropagator, prop *propagation.SGP4Propagator, times []time.Time) (*Series, error) {
	pos, vel, err := runner.Series(ctx, prop, times)
	if err != nil {
		return nil, fmt.Errorf("propagating NORAD %d: %w", prop.NORADID(), err)
	}
	s := &Series{
		Epochs:   times,
		Observer: pos,
		Velocity: vel,
		Sun:      SunSeries(times),
		Moon:     MoonSeries(times),
	}
	if err := s.Prepare(); err != nil {
		return nil, err
	}
	return s, nil
}
