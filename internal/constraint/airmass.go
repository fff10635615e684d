package constraint

import (
	"fmt"
	"math"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/transform"
)

// Below this altitude the plane-parallel secant model is corrected for
// curvature.
const (
	airmassKneeDeg = 10.0
	airmassCurveA  = 0.0382
	airmassCurveK  = 11.0
)

var airmassKneeTerm = math.Exp(-airmassCurveK * math.Sin(airmassKneeDeg*math.Pi/180))

// Airmass returns the relative air mass for a target at altDeg. It is the
// secant of the zenith angle above 10°, a curvature-corrected form below
// that, continuous at 10° and finite down to the horizon (about 30.7 at
// 0°). Targets below the horizon have infinite air mass.
func Airmass(altDeg float64) float64 {
	if altDeg <= 0 {
		return math.Inf(1)
	}
	s := math.Sin(altDeg * math.Pi / 180)
	if altDeg >= airmassKneeDeg {
		return 1 / s
	}
	return 1 / (s + airmassCurveA*(math.Exp(-airmassCurveK*s)-airmassKneeTerm))
}

type airmassBounds struct {
	max float64
	min *float64
}

func (b airmassBounds) sample(am float64) Sample {
	switch {
	case am > b.max:
		return Sample{Violated: true, Severity: math.Min(am-b.max, 1)}
	case b.min != nil && am < *b.min:
		return Sample{Violated: true, Severity: math.Min(*b.min-am, 1)}
	}
	return Sample{}
}

func airmassEvaluator(name string, b airmassBounds) *evaluator {
	return &evaluator{
		kind: kindAirmass,
		name: name,
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			return prepared{target: func(ra, dec float64) (trace, error) {
				hz, err := eph.TopocentricAltAz(ra, dec)
				if err != nil {
					return trace{}, err
				}
				ams := make([]float64, len(hz))
				samples := make([]Sample, len(hz))
				for i, h := range hz {
					ams[i] = Airmass(h.AltDeg)
					samples[i] = b.sample(ams[i])
				}
				return trace{samples: samples, describe: describeAirmass(b, ams, hz)}, nil
			}}, nil
		},
	}
}

func describeAirmass(b airmassBounds, ams []float64, hz []transform.Horizontal) DescribeFunc {
	return func(start, end int, _ bool) string {
		if ams[start] > b.max {
			peak := ams[start]
			for _, a := range ams[start : end+1] {
				peak = math.Max(peak, a)
			}
			if math.IsInf(peak, 1) {
				return fmt.Sprintf("Target below horizon (max airmass %.2f)", b.max)
			}
			return fmt.Sprintf("Airmass %.2f exceeds max %.2f (altitude %.1f°)", peak, b.max, hz[start].AltDeg)
		}
		low := ams[start]
		for _, a := range ams[start : end+1] {
			low = math.Min(low, a)
		}
		return fmt.Sprintf("Airmass %.2f below min %.2f", low, *b.min)
	}
}
