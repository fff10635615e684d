package transform

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a time.Time to Julian Date (UTC scale).
// Valid for Gregorian calendar dates.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	dayFrac := (float64(t.Hour()) +
		float64(t.Minute())/60.0 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600.0) / 24.0

	// Jan/Feb count as months 13/14 of the previous year.
	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5 + dayFrac
}

// GMST returns Greenwich Mean Sidereal Time in radians, [0, 2π), using the
// IAU-82 expression (Vallado Eq 3-47) with UTC standing in for UT1:
//
//	θ = 67310.54841 + (876600h + 8640184.812866)T + 0.093104T² - 6.2e-6T³  [s]
func GMST(t time.Time) float64 {
	tu := (JulianDate(t) - j2000) / 36525.0

	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*tu +
		0.093104*tu*tu -
		6.2e-6*tu*tu*tu

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2.0 * math.Pi
}

// GMSTSeries evaluates GMST for every timestamp.
func GMSTSeries(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = GMST(t)
	}
	return out
}
