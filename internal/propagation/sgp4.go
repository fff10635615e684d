// Package propagation turns two-line element sets into observer state
// vectors with SGP4 (github.com/joshuaferrara/go-satellite). Output is TEME,
// which the rest of the system treats as its inertial frame.
package propagation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/transform"
)

// ErrInvalidTLE is returned for element sets that fail format checks or SGP4
// initialization.
var ErrInvalidTLE = errors.New("invalid TLE")

// ErrPropagation is returned when SGP4 output is NaN/Inf or physically
// implausible (decayed or diverged element set).
var ErrPropagation = errors.New("sgp4 propagation failed")

// SGP4Propagator wraps one initialized satellite record.
//
// go-satellite's Propagate takes the record by value, so SGP4 error codes are
// not visible; failures are detected from the output instead. It also calls
// log.Fatal on malformed lines, hence the format pre-check.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4Propagator initializes SGP4 from TLE lines.
func NewSGP4Propagator(line1, line2 string, noradID int) (*SGP4Propagator, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("%w for NORAD %d: %v", ErrInvalidTLE, noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("%w for NORAD %d: sgp4 init code=%d %s", ErrInvalidTLE, noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: noradID}, nil
}

// NORADID returns the catalog number the propagator was built for.
func (p *SGP4Propagator) NORADID() int { return p.noradID }

func validateTLELines(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// Propagate returns the TEME position (km) and velocity (km/s) at t.
// go-satellite resolves time to whole seconds.
func (p *SGP4Propagator) Propagate(t time.Time) (geometry.Vec3, geometry.Vec3, error) {
	t = t.UTC()
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	r := geometry.Vec3{pos.X, pos.Y, pos.Z}
	if !transform.ValidOrbitRadius(r) {
		return geometry.Vec3{}, geometry.Vec3{}, fmt.Errorf("%w for NORAD %d at %s: position %v",
			ErrPropagation, p.noradID, t.Format(time.RFC3339), r)
	}
	return r, geometry.Vec3{vel.X, vel.Y, vel.Z}, nil
}
