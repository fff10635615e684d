package geometry

import "testing"

// vertexOrders returns every rotation of poly in both orientations.
func vertexOrders(poly []LonLat) [][]LonLat {
	var out [][]LonLat
	for k := range poly {
		r := append(append([]LonLat{}, poly[k:]...), poly[:k]...)
		out = append(out, r)
		rev := make([]LonLat, len(r))
		for i := range r {
			rev[i] = r[len(r)-1-i]
		}
		out = append(out, rev)
	}
	return out
}

func TestPointInPolygonSquare(t *testing.T) {
	square := []LonLat{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	tests := []struct {
		name string
		p    LonLat
		want bool
	}{
		{"center", LonLat{5, 5}, true},
		{"far outside", LonLat{20, 20}, false},
		{"west of square", LonLat{-1, 5}, false},
		{"above square", LonLat{5, 11}, false},
		{"near corner inside", LonLat{0.1, 9.9}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, poly := range vertexOrders(square) {
				if got := PointInPolygon(tt.p, poly); got != tt.want {
					t.Errorf("variant %d: PointInPolygon(%v) = %v, want %v", i, tt.p, got, tt.want)
				}
			}
		})
	}
}

func TestPointInPolygonBoundary(t *testing.T) {
	square := []LonLat{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	tests := []struct {
		name string
		p    LonLat
		want bool
	}{
		{"south-west corner", LonLat{0, 0}, true},
		{"south edge", LonLat{5, 0}, true},
		{"west edge", LonLat{0, 5}, true},
		{"east edge", LonLat{10, 5}, false},
		{"north edge", LonLat{5, 10}, false},
		{"south-east corner", LonLat{10, 0}, false},
		{"north-east corner", LonLat{10, 10}, false},
		{"north-west corner", LonLat{0, 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, poly := range vertexOrders(square) {
				if got := PointInPolygon(tt.p, poly); got != tt.want {
					t.Errorf("variant %d: PointInPolygon(%v) = %v, want %v", i, tt.p, got, tt.want)
				}
			}
		})
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	// U shape open to the north.
	u := []LonLat{{0, 0}, {30, 0}, {30, 30}, {20, 30}, {20, 10}, {10, 10}, {10, 30}, {0, 30}}
	if !PointInPolygon(LonLat{5, 20}, u) {
		t.Error("left arm should be inside")
	}
	if PointInPolygon(LonLat{15, 20}, u) {
		t.Error("notch should be outside")
	}
	if !PointInPolygon(LonLat{15, 5}, u) {
		t.Error("base should be inside")
	}
}

func TestPointInPolygonDegenerate(t *testing.T) {
	if PointInPolygon(LonLat{0, 0}, []LonLat{{-1, -1}, {1, 1}}) {
		t.Error("two-vertex polygon must contain nothing")
	}
}

func TestWindingNumberOrientation(t *testing.T) {
	ccw := []LonLat{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	cw := []LonLat{{0, 10}, {10, 10}, {10, 0}, {0, 0}}
	p := LonLat{5, 5}
	if a, b := WindingNumber(p, ccw), WindingNumber(p, cw); a != -b || a == 0 {
		t.Errorf("winding numbers ccw=%d cw=%d, want opposite non-zero", a, b)
	}
}
