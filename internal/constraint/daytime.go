package constraint

import (
	"fmt"

	"github.com/star/skywindow/internal/ephemeris"
)

// Twilight names a Sun-altitude boundary between day and night.
type Twilight string

const (
	TwilightNone         Twilight = "none"
	TwilightCivil        Twilight = "civil"
	TwilightNautical     Twilight = "nautical"
	TwilightAstronomical Twilight = "astronomical"
)

// AltitudeDeg returns the Sun altitude at which night begins.
func (t Twilight) AltitudeDeg() (float64, error) {
	switch t {
	case TwilightNone:
		return 0, nil
	case TwilightCivil, "":
		return -6, nil
	case TwilightNautical:
		return -12, nil
	case TwilightAstronomical:
		return -18, nil
	}
	return 0, fmt.Errorf("%w: unknown twilight %q", ErrInvalidConfig, string(t))
}

func daytimeEvaluator(twilight Twilight, allowDaytime bool) (*evaluator, error) {
	limit, err := twilight.AltitudeDeg()
	if err != nil {
		return nil, err
	}
	if twilight == "" {
		twilight = TwilightCivil
	}
	name := fmt.Sprintf("DaytimeConstraint(twilight=%s)", twilight)
	desc := "Daytime - target not visible during required nighttime hours"
	if allowDaytime {
		name = fmt.Sprintf("DaytimeConstraint(twilight=%s, allow_daytime)", twilight)
		desc = "Nighttime - observation restricted to daytime"
	}
	return &evaluator{
		kind: kindDaytime,
		name: name,
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			sun, err := eph.BodyAltAz(ephemeris.BodySun)
			if err != nil {
				return prepared{}, err
			}
			samples := make([]Sample, len(sun))
			for i, h := range sun {
				day := h.AltDeg > limit
				samples[i] = Sample{Violated: day != allowDaytime, Severity: 1}
			}
			return sharedProbe(samples, func(int, int, bool) string { return desc }), nil
		},
	}, nil
}
