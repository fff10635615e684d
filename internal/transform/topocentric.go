package transform

import (
	"math"

	"github.com/soniakeys/unit"

	"github.com/star/skywindow/internal/geometry"
)

// WGS-84 ellipsoid, km.
const (
	wgs84A  = 6378.137
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// Geodetic is a position on or above the WGS-84 ellipsoid.
type Geodetic struct {
	LatDeg, LonDeg float64
	HeightKm       float64
}

// Fixed returns the Earth-fixed Cartesian position (km) of g.
func (g Geodetic) Fixed() geometry.Vec3 {
	lat := unit.AngleFromDeg(g.LatDeg)
	lon := unit.AngleFromDeg(g.LonDeg)
	sinLat, cosLat := lat.Sin(), lat.Cos()

	// Radius of curvature in the prime vertical.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return geometry.Vec3{
		(n + g.HeightKm) * cosLat * lon.Cos(),
		(n + g.HeightKm) * cosLat * lon.Sin(),
		(n*(1-wgs84E2) + g.HeightKm) * sinLat,
	}
}

// EllipsoidRadius returns the distance (km) from the Earth's centre to the
// WGS-84 surface directly beneath r. Only the geocentric latitude of r
// matters, so any frame sharing the Earth's polar axis works.
func EllipsoidRadius(r geometry.Vec3) float64 {
	n := r.Norm()
	if n == 0 {
		return wgs84A
	}
	sinPhi := r[2] / n
	cos2 := 1 - sinPhi*sinPhi
	b := wgs84A * (1 - wgs84F)
	return wgs84A * b / math.Sqrt(b*b*cos2+wgs84A*wgs84A*sinPhi*sinPhi)
}

// FixedToGeodetic converts an Earth-fixed position (km) to geodetic
// coordinates with Bowring's iteration; 5 rounds is ample for anything from
// the surface to GEO.
func FixedToGeodetic(r geometry.Vec3) Geodetic {
	x, y, z := r[0], r[1], r[2]
	lon := math.Atan2(y, x)
	p := math.Hypot(x, y)

	lat := math.Atan2(z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		s := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*s*s)
		lat = math.Atan2(z+wgs84E2*n*s, p)
	}

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var h float64
	if math.Abs(cosLat) > 1e-10 {
		h = p/cosLat - n
	} else {
		h = math.Abs(z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return Geodetic{
		LatDeg:   unit.Angle(lat).Deg(),
		LonDeg:   unit.Angle(lon).Deg(),
		HeightKm: h,
	}
}

// SubPoint returns the geodetic point beneath an inertial position at the
// given GMST.
func SubPoint(r geometry.Vec3, gmst float64) Geodetic {
	return FixedToGeodetic(InertialToFixed(r, gmst))
}

// Horizontal is a direction in the observer's local horizon frame.
type Horizontal struct {
	AltDeg float64 // 0 = horizon, 90 = zenith
	AzDeg  float64 // 0 = North, clockwise, [0, 360)
}

// HorizontalFromFixed expresses an Earth-fixed direction (any length) in the
// local horizon of a site at geodetic latitude/longitude, using the SEZ
// rotation (Vallado Section 4.4).
func HorizontalFromFixed(site Geodetic, dir geometry.Vec3) Horizontal {
	lat := unit.AngleFromDeg(site.LatDeg)
	lon := unit.AngleFromDeg(site.LonDeg)
	sinLat, cosLat := lat.Sin(), lat.Cos()
	sinLon, cosLon := lon.Sin(), lon.Cos()

	d := geometry.Normalize(dir)
	south := sinLat*cosLon*d[0] + sinLat*sinLon*d[1] - cosLat*d[2]
	east := -sinLon*d[0] + cosLon*d[1]
	zenith := cosLat*cosLon*d[0] + cosLat*sinLon*d[1] + sinLat*d[2]

	el := math.Asin(geometry.Clamp(zenith, -1, 1))
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}
	return Horizontal{
		AltDeg: unit.Angle(el).Deg(),
		AzDeg:  unit.Angle(az).Deg(),
	}
}

// HorizontalFromInertial expresses an inertial direction in the local horizon
// of an observer whose inertial position is obs, at the given GMST.
func HorizontalFromInertial(obs, dir geometry.Vec3, gmst float64) Horizontal {
	site := SubPoint(obs, gmst)
	return HorizontalFromFixed(site, InertialToFixed(dir, gmst))
}
