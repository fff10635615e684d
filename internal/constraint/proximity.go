package constraint

import (
	"fmt"
	"math"
	"strconv"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
)

// angleRange is a [min, max] band on an angle in degrees. Max is optional.
type angleRange struct {
	min float64
	max *float64
}

// sample classifies one angle. Below min the severity is the fractional
// shortfall; above max it is the fractional excess.
func (r angleRange) sample(angle float64) Sample {
	switch {
	case angle < r.min:
		return Sample{Violated: true, Severity: (r.min - angle) / math.Max(r.min, 1e-9)}
	case r.max != nil && angle > *r.max:
		return Sample{Violated: true, Severity: (angle - *r.max) / math.Max(*r.max, 1e-9)}
	}
	return Sample{}
}

// proximityEvaluator builds a body-avoidance evaluator. label is the body as
// it appears in descriptions; positions resolves the body's geocentric
// position array.
func proximityEvaluator(kind, name, label string, band angleRange, positions func(ephemeris.Provider) ([]geometry.Vec3, error)) *evaluator {
	return &evaluator{
		kind: kind,
		name: name,
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			obs, err := eph.ObserverPositions()
			if err != nil {
				return prepared{}, err
			}
			body, err := positions(eph)
			if err != nil {
				return prepared{}, err
			}
			dirs, err := geometry.BodyDirections(body, obs)
			if err != nil {
				return prepared{}, err
			}
			return prepared{target: func(ra, dec float64) (trace, error) {
				angles := geometry.Separations(geometry.RADecToUnit(ra, dec), dirs)
				samples := make([]Sample, len(angles))
				for i, a := range angles {
					samples[i] = band.sample(a)
				}
				return trace{samples: samples, describe: describeProximity(label, band, angles)}, nil
			}}, nil
		},
	}
}

// describeProximity reports the closest approach of a window that opened
// below min, or the widest separation of one that opened above max.
func describeProximity(label string, band angleRange, angles []float64) DescribeFunc {
	return func(start, end int, final bool) string {
		if final {
			if band.max != nil {
				return fmt.Sprintf("Target too close to %s (min: %.1f°) or too far (max: %.1f°)", label, band.min, *band.max)
			}
			return fmt.Sprintf("Target too close to %s (min allowed: %.1f°)", label, band.min)
		}
		if angles[start] < band.min {
			closest := angles[start]
			for _, a := range angles[start : end+1] {
				closest = math.Min(closest, a)
			}
			return fmt.Sprintf("Target within %.1f° of %s (min allowed: %.1f°)", closest, label, band.min)
		}
		widest := angles[start]
		for _, a := range angles[start : end+1] {
			widest = math.Max(widest, a)
		}
		return fmt.Sprintf("Target %.1f° from %s (max allowed: %.1f°)", widest, label, *band.max)
	}
}

// proximityName renders "Kind(min=X°)" or "Kind(min=X°, max=Y°)" with the
// shortest exact decimal for each bound.
func proximityName(kind, prefix string, band angleRange) string {
	if band.max != nil {
		return fmt.Sprintf("%s(%smin=%s°, max=%s°)", kind, prefix, num(band.min), num(*band.max))
	}
	return fmt.Sprintf("%s(%smin=%s°)", kind, prefix, num(band.min))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
