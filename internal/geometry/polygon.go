package geometry

// LonLat is a polygon vertex or query point in degrees.
type LonLat struct {
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// WindingNumber returns the winding number of polygon around p, treating the
// vertex list as closed (last vertex connects back to the first). A non-zero
// result means p is inside. Orientation flips the sign only.
func WindingNumber(p LonLat, polygon []LonLat) int {
	wn := 0
	n := len(polygon)
	for i := 0; i < n; i++ {
		a := polygon[i]
		b := polygon[(i+1)%n]
		if a.Lat <= p.Lat {
			if b.Lat > p.Lat && isLeft(a, b, p) > 0 {
				wn++
			}
		} else if b.Lat <= p.Lat && isLeft(a, b, p) < 0 {
			wn--
		}
	}
	return wn
}

// PointInPolygon reports whether p lies inside polygon.
//
// Boundary points follow the half-open crossing rule: an edge spans
// [min lat, max lat) and counts only when p is strictly west of it. On an
// axis-aligned box the west and south edges are inside, the east and north
// edges outside, and only the south-west corner is inside. The rule does not
// depend on vertex order or orientation.
func PointInPolygon(p LonLat, polygon []LonLat) bool {
	if len(polygon) < 3 {
		return false
	}
	return WindingNumber(p, polygon) != 0
}

// isLeft is positive when p is left of the directed line a->b, negative when
// right, zero when collinear.
func isLeft(a, b, p LonLat) float64 {
	return (b.Lon-a.Lon)*(p.Lat-a.Lat) - (p.Lon-a.Lon)*(b.Lat-a.Lat)
}
