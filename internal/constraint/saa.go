package constraint

import (
	"fmt"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
)

// saaEvaluator flags samples whose sub-observer point lies inside polygon.
func saaEvaluator(polygon []geometry.LonLat) *evaluator {
	return &evaluator{
		kind: kindSAA,
		name: fmt.Sprintf("SAAConstraint(vertices=%d)", len(polygon)),
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			lats, lons, err := eph.SubObserverLatLon()
			if err != nil {
				return prepared{}, err
			}
			samples := make([]Sample, len(lats))
			for i := range lats {
				if geometry.PointInPolygon(geometry.LonLat{Lon: lons[i], Lat: lats[i]}, polygon) {
					samples[i] = Sample{Violated: true, Severity: 1}
				}
			}
			return sharedProbe(samples, func(start, _ int, _ bool) string {
				return fmt.Sprintf("In SAA region (lat: %.2f°, lon: %.2f°)", lats[start], lons[start])
			}), nil
		},
	}
}
