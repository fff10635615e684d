// Package geometry holds the vector math shared by every constraint:
// spherical to Cartesian conversion, normalization, angular separation and
// their batch forms.
//
// All positions are 3-vectors in km in one inertial frame. Directions are
// unit vectors. Angles cross the package boundary in degrees.
package geometry

import (
	"math"

	"github.com/soniakeys/unit"
)

// Vec3 is a Cartesian 3-vector.
type Vec3 [3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns s*v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Neg returns -v.
func (v Vec3) Neg() Vec3 {
	return Vec3{-v[0], -v[1], -v[2]}
}

// Norm returns the Euclidean magnitude of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// IsZero reports whether every component is exactly zero.
func (v Vec3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// Dot returns the scalar product of a and b.
func Dot(a, b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Cross returns a x b.
func Cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Normalize divides v by its magnitude. A zero vector comes back as the zero
// vector; its dot product with any direction is 0, so separations against it
// evaluate to 90 degrees instead of NaN.
func Normalize(v Vec3) Vec3 {
	mag := v.Norm()
	if mag == 0 {
		return Vec3{}
	}
	return Vec3{v[0] / mag, v[1] / mag, v[2] / mag}
}

// RADecToUnit converts right ascension and declination (degrees) to a unit
// vector: x = cos(dec)cos(ra), y = cos(dec)sin(ra), z = sin(dec).
func RADecToUnit(raDeg, decDeg float64) Vec3 {
	ra := unit.AngleFromDeg(raDeg)
	dec := unit.AngleFromDeg(decDeg)
	cd := dec.Cos()
	return Vec3{cd * ra.Cos(), cd * ra.Sin(), dec.Sin()}
}

// UnitToRADec is the inverse of RADecToUnit. RA is returned in [0, 360).
func UnitToRADec(v Vec3) (raDeg, decDeg float64) {
	u := Normalize(v)
	dec := unit.Angle(math.Asin(Clamp(u[2], -1, 1)))
	ra := unit.Angle(math.Atan2(u[1], u[0]))
	raDeg = ra.Deg()
	if raDeg < 0 {
		raDeg += 360
	}
	return raDeg, dec.Deg()
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// SeparationDeg returns the angle in degrees between two directions. Inputs
// need not be unit length. The cosine is clamped to [-1, 1] before acos.
func SeparationDeg(a, b Vec3) float64 {
	c := Dot(Normalize(a), Normalize(b))
	return unit.Angle(math.Acos(Clamp(c, -1, 1))).Deg()
}

// AngularSeparation returns the angle in degrees between the target
// direction and the body as seen from the observer.
func AngularSeparation(target, bodyPos, observerPos Vec3) float64 {
	return SeparationDeg(target, bodyPos.Sub(observerPos))
}
