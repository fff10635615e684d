package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/propagation"
	"github.com/star/skywindow/internal/tle"
	"github.com/star/skywindow/internal/transform"
)

var (
	errBadRequest    = errors.New("bad request")
	errSampleBudget  = errors.New("sample budget exceeded")
	errNoPropagation = errors.New("orbit sources are not configured")
)

// groundSite is a fixed observer on the WGS-84 ellipsoid.
type groundSite struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	HeightM float64 `json:"height_m"`
}

type tleLines struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// observerRequest selects exactly one ephemeris source and the time grid it
// is sampled on. A series carries its own timestamps; start, end and
// step_seconds are ignored for it.
type observerRequest struct {
	Ground      *groundSite       `json:"ground,omitempty"`
	TLE         *tleLines         `json:"tle,omitempty"`
	NORADID     *int              `json:"norad_id,omitempty"`
	Series      *ephemeris.Series `json:"series,omitempty"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	StepSeconds float64           `json:"step_seconds"`
}

func (o observerRequest) sources() int {
	n := 0
	if o.Ground != nil {
		n++
	}
	if o.TLE != nil {
		n++
	}
	if o.NORADID != nil {
		n++
	}
	if o.Series != nil {
		n++
	}
	return n
}

// grid validates the requested range against the sample budget before any
// timestamps are allocated.
func (o observerRequest) grid(maxSamples int) ([]time.Time, error) {
	if o.Start.IsZero() || o.End.IsZero() {
		return nil, fmt.Errorf("%w: start and end are required", errBadRequest)
	}
	if !(o.StepSeconds > 0) || math.IsInf(o.StepSeconds, 0) {
		return nil, fmt.Errorf("%w: step_seconds must be positive", errBadRequest)
	}
	step := time.Duration(o.StepSeconds * float64(time.Second))
	if step <= 0 {
		return nil, fmt.Errorf("%w: step_seconds too small", errBadRequest)
	}
	if !o.End.Before(o.Start) {
		if n := int64(o.End.Sub(o.Start)/step) + 1; maxSamples > 0 && n > int64(maxSamples) {
			return nil, fmt.Errorf("%w: %d samples requested, max %d", errSampleBudget, n, maxSamples)
		}
	}
	return ephemeris.Grid(o.Start.UTC(), o.End.UTC(), step)
}

// provider builds the ephemeris described by o.
func (s *Server) provider(ctx context.Context, o observerRequest) (ephemeris.Provider, error) {
	if o.sources() != 1 {
		return nil, fmt.Errorf("%w: observer needs exactly one of ground, tle, norad_id, series", errBadRequest)
	}
	if o.Series != nil {
		return s.series(o.Series)
	}
	times, err := o.grid(s.cfg.MaxSamples)
	if err != nil {
		return nil, err
	}

	switch {
	case o.Ground != nil:
		g := o.Ground
		if g.Lat < -90 || g.Lat > 90 || math.IsNaN(g.Lon) || math.IsInf(g.Lon, 0) {
			return nil, fmt.Errorf("%w: ground site lat %v lon %v", errBadRequest, g.Lat, g.Lon)
		}
		return ephemeris.NewGround(transform.Geodetic{LatDeg: g.Lat, LonDeg: g.Lon, HeightKm: g.HeightM / 1000}, times)

	case o.TLE != nil:
		if s.prop == nil {
			return nil, errNoPropagation
		}
		entries, err := tle.Parse(strings.NewReader(o.TLE.Line1+"\n"+o.TLE.Line2), s.logger)
		if err != nil {
			return nil, err
		}
		if len(entries) != 1 {
			return nil, fmt.Errorf("%w: unreadable element set", propagation.ErrInvalidTLE)
		}
		sp, err := propagation.NewSGP4Propagator(entries[0].Line1, entries[0].Line2, entries[0].NORADID)
		if err != nil {
			return nil, err
		}
		return ephemeris.NewOrbit(ctx, s.prop, sp, times)

	default:
		if s.prop == nil {
			return nil, errNoPropagation
		}
		sp, err := s.prop.Lookup(*o.NORADID)
		if err != nil {
			return nil, err
		}
		return ephemeris.NewOrbit(ctx, s.prop, sp, times)
	}
}

// series accepts caller-supplied vectors. Sun and Moon may be omitted
// together, in which case they are computed for the given timestamps.
func (s *Server) series(in *ephemeris.Series) (ephemeris.Provider, error) {
	n := len(in.Epochs)
	if n == 0 {
		return nil, fmt.Errorf("%w: series has no timestamps", errBadRequest)
	}
	if s.cfg.MaxSamples > 0 && n > s.cfg.MaxSamples {
		return nil, fmt.Errorf("%w: %d samples supplied, max %d", errSampleBudget, n, s.cfg.MaxSamples)
	}
	if len(in.Sun) == 0 && len(in.Moon) == 0 {
		in.Sun = ephemeris.SunSeries(in.Epochs)
		in.Moon = ephemeris.MoonSeries(in.Epochs)
	}
	if err := in.Prepare(); err != nil {
		return nil, err
	}
	return in, nil
}
