package constraint

import (
	"fmt"
	"math"
	"strings"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/transform"
)

type altAzLimits struct {
	minAlt float64
	maxAlt *float64
	minAz  *float64
	maxAz  *float64
}

// azimuthOK handles a wrapped range (min > max spans north).
func (l altAzLimits) azimuthOK(az float64) bool {
	switch {
	case l.minAz != nil && l.maxAz != nil:
		if *l.minAz <= *l.maxAz {
			return az >= *l.minAz && az <= *l.maxAz
		}
		return az >= *l.minAz || az <= *l.maxAz
	case l.minAz != nil:
		return az >= *l.minAz
	case l.maxAz != nil:
		return az <= *l.maxAz
	}
	return true
}

// sample checks altitude first; azimuth only matters once altitude passes
// and its violations are binary.
func (l altAzLimits) sample(h transform.Horizontal) Sample {
	switch {
	case h.AltDeg < l.minAlt:
		return Sample{Violated: true, Severity: math.Min(l.minAlt-h.AltDeg, 1)}
	case l.maxAlt != nil && h.AltDeg > *l.maxAlt:
		return Sample{Violated: true, Severity: math.Min(h.AltDeg-*l.maxAlt, 1)}
	case !l.azimuthOK(h.AzDeg):
		return Sample{Violated: true, Severity: 1}
	}
	return Sample{}
}

func (l altAzLimits) name() string {
	parts := []string{fmt.Sprintf("min_alt=%.1f°", l.minAlt)}
	if l.maxAlt != nil {
		parts = append(parts, fmt.Sprintf("max_alt=%.1f°", *l.maxAlt))
	}
	if l.minAz != nil {
		parts = append(parts, fmt.Sprintf("min_az=%.1f°", *l.minAz))
	}
	if l.maxAz != nil {
		parts = append(parts, fmt.Sprintf("max_az=%.1f°", *l.maxAz))
	}
	return "AltAzConstraint(" + strings.Join(parts, ", ") + ")"
}

func (l altAzLimits) reasons(h transform.Horizontal) string {
	var out []string
	if h.AltDeg < l.minAlt {
		out = append(out, fmt.Sprintf("altitude %.1f° < min %.1f°", h.AltDeg, l.minAlt))
	}
	if l.maxAlt != nil && h.AltDeg > *l.maxAlt {
		out = append(out, fmt.Sprintf("altitude %.1f° > max %.1f°", h.AltDeg, *l.maxAlt))
	}
	if !l.azimuthOK(h.AzDeg) {
		out = append(out, fmt.Sprintf("azimuth %.1f° outside allowed range", h.AzDeg))
	}
	if len(out) == 0 {
		return "Alt/az constraint violated"
	}
	return "Target " + strings.Join(out, ", ")
}

func altAzEvaluator(l altAzLimits) *evaluator {
	return &evaluator{
		kind: kindAltAz,
		name: l.name(),
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			return prepared{target: func(ra, dec float64) (trace, error) {
				hz, err := eph.TopocentricAltAz(ra, dec)
				if err != nil {
					return trace{}, err
				}
				samples := make([]Sample, len(hz))
				for i, h := range hz {
					samples[i] = l.sample(h)
				}
				return trace{
					samples:  samples,
					describe: func(start, _ int, _ bool) string { return l.reasons(hz[start]) },
				}, nil
			}}, nil
		},
	}
}
