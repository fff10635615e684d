package constraint

import (
	"fmt"
	"math"

	"github.com/soniakeys/unit"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/transform"
)

const (
	earthRadiusKm = 6378.137
	// Standard refraction at the horizon.
	horizonRefractionDeg = 0.5666
)

type earthLimbOptions struct {
	min        float64
	max        *float64
	refraction bool
	horizonDip bool
}

// limbThresholds returns, per sample, the minimum allowed angle between
// the target and the Earth's centre: the Earth's angular radius plus the
// margin. With horizonDip the radius beneath the observer replaces the
// equatorial radius; with refraction the threshold drops by the standard
// horizon refraction.
func limbThresholds(obs []geometry.Vec3, o earthLimbOptions) []float64 {
	out := make([]float64, len(obs))
	for i, r := range obs {
		radius := earthRadiusKm
		if o.horizonDip {
			radius = transform.EllipsoidRadius(r)
		}
		ratio := geometry.Clamp(radius/r.Norm(), -1, 1)
		th := unit.Angle(math.Asin(ratio)).Deg() + o.min
		if o.refraction {
			th -= horizonRefractionDeg
		}
		out[i] = th
	}
	return out
}

func earthLimbEvaluator(name string, o earthLimbOptions) *evaluator {
	return &evaluator{
		kind: kindEarthLimb,
		name: name,
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			obs, err := eph.ObserverPositions()
			if err != nil {
				return prepared{}, err
			}
			thresholds := limbThresholds(obs, o)
			nadir := make([]geometry.Vec3, len(obs))
			for i, r := range obs {
				nadir[i] = geometry.Normalize(r.Neg())
			}
			describe := func(start, end int, final bool) string {
				if o.max != nil {
					return fmt.Sprintf("Target within Earth limb + margin (min: %.1f°, max: %.1f°)", thresholds[end], *o.max)
				}
				return fmt.Sprintf("Target within Earth limb + margin (min allowed: %.1f°)", thresholds[end])
			}
			return prepared{target: func(ra, dec float64) (trace, error) {
				angles := geometry.Separations(geometry.RADecToUnit(ra, dec), nadir)
				samples := make([]Sample, len(angles))
				for i, a := range angles {
					samples[i] = angleRange{min: thresholds[i], max: o.max}.sample(a)
				}
				return trace{samples: samples, describe: describe}, nil
			}}, nil
		},
	}
}
