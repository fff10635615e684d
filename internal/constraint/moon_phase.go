package constraint

import (
	"fmt"
	"math"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
)

// MoonVisibility selects how much of the Moon's disc must be above the
// horizon for it to count as up.
type MoonVisibility string

const (
	MoonVisibilityFull    MoonVisibility = "full"
	MoonVisibilityPartial MoonVisibility = "partial"
)

// horizonDeg is the lowest Moon altitude at which it still counts as up.
func (v MoonVisibility) horizonDeg() (float64, error) {
	switch v {
	case MoonVisibilityFull, "":
		return 0, nil
	case MoonVisibilityPartial:
		return -0.5, nil
	}
	return 0, fmt.Errorf("%w: unknown moon_visibility %q", ErrInvalidConfig, string(v))
}

// PhaseName buckets an illuminated fraction into a descriptive phase.
// Values a little above 1 are tolerated and still land on sensible names.
func PhaseName(illum float64) string {
	switch {
	case illum < 0.02:
		return "New Moon"
	case illum < 0.48:
		return "Waxing Crescent"
	case illum < 0.52:
		return "First Quarter"
	case illum < 0.98:
		return "Waxing Gibbous"
	case illum <= 1.02:
		return "Full Moon"
	case illum < 1.48:
		return "Waning Gibbous"
	case illum < 1.52:
		return "Last Quarter"
	}
	return "Waning Crescent"
}

type moonPhaseOptions struct {
	maxIllum     float64
	minIllum     *float64
	minDist      *float64
	maxDist      *float64
	enforceBelow bool
	visibility   MoonVisibility
}

func (o moonPhaseOptions) usesDistance() bool { return o.minDist != nil || o.maxDist != nil }

func (o moonPhaseOptions) distanceBand() angleRange {
	b := angleRange{max: o.maxDist}
	if o.minDist != nil {
		b.min = *o.minDist
	}
	return b
}

func (o moonPhaseOptions) illumSample(f float64) Sample {
	switch {
	case f > o.maxIllum:
		return Sample{Violated: true, Severity: math.Min(f-o.maxIllum, 1)}
	case o.minIllum != nil && f < *o.minIllum:
		return Sample{Violated: true, Severity: math.Min(*o.minIllum-f, 1)}
	}
	return Sample{}
}

func moonPhaseEvaluator(name string, o moonPhaseOptions) (*evaluator, error) {
	horizon, err := o.visibility.horizonDeg()
	if err != nil {
		return nil, err
	}
	return &evaluator{
		kind: kindMoonPhase,
		name: name,
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			illum, err := eph.MoonIllumination()
			if err != nil {
				return prepared{}, err
			}
			gate := make([]bool, len(illum))
			if o.enforceBelow {
				for i := range gate {
					gate[i] = true
				}
			} else {
				moonHz, err := eph.BodyAltAz(ephemeris.BodyMoon)
				if err != nil {
					return prepared{}, err
				}
				for i, h := range moonHz {
					gate[i] = h.AltDeg >= horizon
				}
			}
			base := make([]Sample, len(illum))
			for i, f := range illum {
				if gate[i] {
					base[i] = o.illumSample(f)
				}
			}
			if !o.usesDistance() {
				return sharedProbe(base, describeMoonPhase(o, illum, nil)), nil
			}

			obs, err := eph.ObserverPositions()
			if err != nil {
				return prepared{}, err
			}
			moon, err := eph.MoonPositions()
			if err != nil {
				return prepared{}, err
			}
			dirs, err := geometry.BodyDirections(moon, obs)
			if err != nil {
				return prepared{}, err
			}
			band := o.distanceBand()
			return prepared{target: func(ra, dec float64) (trace, error) {
				dist := geometry.Separations(geometry.RADecToUnit(ra, dec), dirs)
				samples := make([]Sample, len(base))
				for i := range base {
					s := base[i]
					if gate[i] {
						if d := band.sample(dist[i]); d.Violated {
							s = Sample{Violated: true, Severity: math.Max(s.Severity, d.Severity)}
						}
					}
					samples[i] = s
				}
				return trace{samples: samples, describe: describeMoonPhase(o, illum, dist)}, nil
			}}, nil
		},
	}, nil
}

// describeMoonPhase explains the first sample of a window. dist is nil when
// the configuration has no distance bounds.
func describeMoonPhase(o moonPhaseOptions, illum, dist []float64) DescribeFunc {
	return func(start, _ int, _ bool) string {
		f := illum[start]
		switch {
		case f > o.maxIllum:
			return fmt.Sprintf("Moon too bright (%.1f%%, %s) - exceeds max %.1f%%", f*100, PhaseName(f), o.maxIllum*100)
		case o.minIllum != nil && f < *o.minIllum:
			return fmt.Sprintf("Moon too dim (%.1f%%, %s) - below min %.1f%%", f*100, PhaseName(f), *o.minIllum*100)
		case dist != nil && o.minDist != nil && dist[start] < *o.minDist:
			return fmt.Sprintf("Moon %.1f° from target (min allowed: %.1f°)", dist[start], *o.minDist)
		case dist != nil && o.maxDist != nil:
			return fmt.Sprintf("Moon %.1f° from target (max allowed: %.1f°)", dist[start], *o.maxDist)
		}
		return "Moon phase constraint violated"
	}
}
