package ephemeris

import (
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/star/skywindow/internal/geometry"
)

// auKm is the astronomical unit in km (IAU 2012).
const auKm = 149597870.7

// SunPosition returns the geocentric apparent position of the Sun (km) in the
// equatorial frame of date, from the low-precision solar series (Meeus ch. 25).
// Good to about 0.01 degree.
func SunPosition(t time.Time) geometry.Vec3 {
	jde := julian.TimeToJD(t)
	ra, dec := solar.ApparentEquatorial(jde)
	r := solar.Radius(base.J2000Century(jde)) * auKm
	return spherical(ra.Cos(), ra.Sin(), dec, r)
}

// MoonPosition returns the geocentric position of the Moon (km) in the
// equatorial frame of date (Meeus ch. 47).
func MoonPosition(t time.Time) geometry.Vec3 {
	jde := julian.TimeToJD(t)
	lon, lat, dist := moonposition.Position(jde)
	eps := nutation.MeanObliquity(jde)
	ra, dec := coord.EclToEq(lon, lat, eps.Sin(), eps.Cos())
	return spherical(ra.Cos(), ra.Sin(), dec, dist)
}

func spherical(cosRA, sinRA float64, dec unit.Angle, r float64) geometry.Vec3 {
	cd := dec.Cos()
	return geometry.Vec3{r * cd * cosRA, r * cd * sinRA, r * dec.Sin()}
}

// SunSeries evaluates SunPosition at every timestamp.
func SunSeries(times []time.Time) []geometry.Vec3 {
	out := make([]geometry.Vec3, len(times))
	for i, t := range times {
		out[i] = SunPosition(t)
	}
	return out
}

// MoonSeries evaluates MoonPosition at every timestamp.
func MoonSeries(times []time.Time) []geometry.Vec3 {
	out := make([]geometry.Vec3, len(times))
	for i, t := range times {
		out[i] = MoonPosition(t)
	}
	return out
}
