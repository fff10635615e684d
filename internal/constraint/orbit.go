package constraint

import (
	"fmt"
	"math"

	"github.com/soniakeys/unit"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
)

// orbitState loads position and velocity together. Missing velocity is an
// error for every orbit-relative constraint, in both evaluation paths.
func orbitState(eph ephemeris.Provider) (pos, vel []geometry.Vec3, err error) {
	pos, err = eph.ObserverPositions()
	if err != nil {
		return nil, nil, err
	}
	vel, err = eph.ObserverVelocities()
	if err != nil {
		return nil, nil, err
	}
	if len(vel) != len(pos) {
		return nil, nil, fmt.Errorf("%w: %d velocities for %d positions", ephemeris.ErrMismatch, len(vel), len(pos))
	}
	return pos, vel, nil
}

type orbitPoleOptions struct {
	min           float64
	max           *float64
	earthLimbPole bool
}

func (o orbitPoleOptions) name() string {
	if o.max != nil {
		return fmt.Sprintf("OrbitPoleConstraint(min=%.1f°, max=%.1f°)", o.min, *o.max)
	}
	return fmt.Sprintf("OrbitPoleConstraint(min=%.1f°)", o.min)
}

// orbitPoleEvaluator measures the target against the orbit normal
// (position x velocity). With earthLimbPole the minimum becomes the Earth's
// angular radius plus min minus 90°, applied to whichever pole is nearer.
func orbitPoleEvaluator(o orbitPoleOptions) *evaluator {
	return &evaluator{
		kind: kindOrbitPole,
		name: o.name(),
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			pos, vel, err := orbitState(eph)
			if err != nil {
				return prepared{}, err
			}
			poles := make([]geometry.Vec3, len(pos))
			mins := make([]float64, len(pos))
			for i := range pos {
				poles[i] = geometry.Normalize(geometry.Cross(pos[i], vel[i]))
				mins[i] = o.min
				if o.earthLimbPole {
					ratio := geometry.Clamp(earthRadiusKm/pos[i].Norm(), -1, 1)
					mins[i] = unit.Angle(math.Asin(ratio)).Deg() + o.min - 90
				}
			}
			return prepared{target: func(ra, dec float64) (trace, error) {
				angles := geometry.Separations(geometry.RADecToUnit(ra, dec), poles)
				samples := make([]Sample, len(angles))
				for i, a := range angles {
					near := a
					if o.earthLimbPole {
						near = math.Min(a, 180-a)
					}
					switch {
					case near < mins[i]:
						samples[i] = Sample{Violated: true, Severity: math.Min(mins[i]-near, 1)}
					case o.max != nil && a > *o.max:
						samples[i] = Sample{Violated: true, Severity: math.Min(a-*o.max, 1)}
					}
				}
				describe := func(start, _ int, _ bool) string {
					if o.max != nil {
						return fmt.Sprintf("Target angle from orbital pole (%.1f°) outside allowed range %.1f°-%.1f°",
							angles[start], mins[start], *o.max)
					}
					return fmt.Sprintf("Target too close to orbital pole (%.1f° < %.1f° minimum)", angles[start], mins[start])
				}
				return trace{samples: samples, describe: describe}, nil
			}}, nil
		},
	}
}

// orbitRamEvaluator keeps the target a set angle from the velocity
// direction.
func orbitRamEvaluator(band angleRange) *evaluator {
	name := fmt.Sprintf("OrbitRamConstraint(min=%.1f°)", band.min)
	if band.max != nil {
		name = fmt.Sprintf("OrbitRamConstraint(min=%.1f°, max=%.1f°)", band.min, *band.max)
	}
	return &evaluator{
		kind: kindOrbitRam,
		name: name,
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			_, vel, err := orbitState(eph)
			if err != nil {
				return prepared{}, err
			}
			ram := make([]geometry.Vec3, len(vel))
			for i, v := range vel {
				ram[i] = geometry.Normalize(v)
			}
			return prepared{target: func(ra, dec float64) (trace, error) {
				angles := geometry.Separations(geometry.RADecToUnit(ra, dec), ram)
				samples := make([]Sample, len(angles))
				for i, a := range angles {
					samples[i] = band.sample(a)
				}
				return trace{samples: samples, describe: describeProximity("RAM direction", band, angles)}, nil
			}}, nil
		},
	}
}
