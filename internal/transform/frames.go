// Package transform converts between the inertial frame the ephemeris works
// in, the Earth-fixed frame, geodetic coordinates and the observer's local
// horizon.
//
// The inertial/fixed rotation is GMST only (TEME -> PEF ≈ ECEF). Polar
// motion and the equation of the equinoxes are ignored. Distances are km.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3-4.
package transform

import (
	"math"

	"github.com/star/skywindow/internal/geometry"
)

// InertialToFixed rotates an inertial position into the Earth-fixed frame:
// r_fixed = R3(gmst) * r_inertial.
func InertialToFixed(r geometry.Vec3, gmst float64) geometry.Vec3 {
	c, s := math.Cos(gmst), math.Sin(gmst)
	return geometry.Vec3{
		r[0]*c + r[1]*s,
		-r[0]*s + r[1]*c,
		r[2],
	}
}

// FixedToInertial is the inverse of InertialToFixed.
func FixedToInertial(r geometry.Vec3, gmst float64) geometry.Vec3 {
	c, s := math.Cos(gmst), math.Sin(gmst)
	return geometry.Vec3{
		r[0]*c - r[1]*s,
		r[0]*s + r[1]*c,
		r[2],
	}
}

// FixedPointVelocity returns the inertial velocity (km/s) of a point at rest
// in the Earth-fixed frame whose inertial position is r: v = ω × r.
func FixedPointVelocity(r geometry.Vec3) geometry.Vec3 {
	return geometry.Cross(geometry.Vec3{0, 0, OmegaEarth}, r)
}

// ValidOrbitRadius reports whether an inertial position is plausible for an
// Earth-orbiting satellite: finite and between 6200 km and 50000 km from the
// geocenter.
func ValidOrbitRadius(r geometry.Vec3) bool {
	for _, c := range r {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	mag := r.Norm()
	return mag >= 6200.0 && mag <= 50000.0
}
