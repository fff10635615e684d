package constraint

import (
	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
)

const sunRadiusKm = 696000.0

// shadow is the Earth's shadow cone geometry at one observer position.
type shadow struct {
	axisDist float64 // observer distance from the anti-Sun axis
	umbra    float64 // umbra radius at the observer's depth, 0 past the apex
	penumbra float64
}

// shadowAt returns false when the observer is on the sunlit side of the
// terminator plane or the Sun position is degenerate.
func shadowAt(obs, sun geometry.Vec3) (shadow, bool) {
	d := sun.Norm()
	if d <= 0 {
		return shadow{}, false
	}
	sunUnit := sun.Scale(1 / d)
	dot := geometry.Dot(obs, sunUnit)
	if dot >= 0 {
		return shadow{}, false
	}
	depth := -dot
	perp := obs.Sub(sunUnit.Scale(dot))

	umbraLen := earthRadiusKm * d / (sunRadiusKm - earthRadiusKm)
	penumbraLen := earthRadiusKm * d / (sunRadiusKm + earthRadiusKm)

	s := shadow{
		axisDist: perp.Norm(),
		penumbra: earthRadiusKm * (1 + depth/penumbraLen),
	}
	if depth <= umbraLen {
		s.umbra = earthRadiusKm * (1 - depth/umbraLen)
	}
	return s, true
}

// eclipseSample: umbra severity grows to 1 on the axis; penumbra severity
// is at most 0.5.
func eclipseSample(obs, sun geometry.Vec3, umbraOnly bool) Sample {
	s, ok := shadowAt(obs, sun)
	if !ok {
		return Sample{}
	}
	if s.umbra > 0 && s.axisDist < s.umbra {
		return Sample{Violated: true, Severity: 1 - s.axisDist/s.umbra}
	}
	if !umbraOnly && s.axisDist < s.penumbra {
		denom := s.penumbra - s.umbra
		if denom < 1e-9 {
			denom = 1e-9
		}
		return Sample{Violated: true, Severity: 0.5 * (s.penumbra - s.axisDist) / denom}
	}
	return Sample{}
}

func eclipseEvaluator(umbraOnly bool) *evaluator {
	name, desc := "Eclipse(umbra+penumbra)", "Observer in shadow"
	if umbraOnly {
		name, desc = "Eclipse(umbra)", "Observer in umbra"
	}
	return &evaluator{
		kind: kindEclipse,
		name: name,
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			obs, err := eph.ObserverPositions()
			if err != nil {
				return prepared{}, err
			}
			sun, err := eph.SunPositions()
			if err != nil {
				return prepared{}, err
			}
			if len(sun) != len(obs) {
				return prepared{}, ephemeris.ErrMismatch
			}
			samples := make([]Sample, len(obs))
			for i := range obs {
				samples[i] = eclipseSample(obs[i], sun[i], umbraOnly)
			}
			return sharedProbe(samples, func(int, int, bool) string { return desc }), nil
		},
	}
}
