package geometry

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when paired input arrays differ in length.
var ErrLengthMismatch = errors.New("array length mismatch")

// RADecToUnitBatch converts paired RA/Dec arrays (degrees) to unit vectors.
func RADecToUnitBatch(ras, decs []float64) ([]Vec3, error) {
	if len(ras) != len(decs) {
		return nil, fmt.Errorf("%w: %d right ascensions, %d declinations", ErrLengthMismatch, len(ras), len(decs))
	}
	out := make([]Vec3, len(ras))
	for i := range ras {
		out[i] = RADecToUnit(ras[i], decs[i])
	}
	return out, nil
}

// BodyDirections returns the unit direction from observer to body at each
// time index.
func BodyDirections(bodyPos, observerPos []Vec3) ([]Vec3, error) {
	if len(bodyPos) != len(observerPos) {
		return nil, fmt.Errorf("%w: %d body samples, %d observer samples", ErrLengthMismatch, len(bodyPos), len(observerPos))
	}
	out := make([]Vec3, len(bodyPos))
	for i := range bodyPos {
		out[i] = Normalize(bodyPos[i].Sub(observerPos[i]))
	}
	return out, nil
}

// Separations returns the angle in degrees between one target direction and
// each of the precomputed unit directions.
func Separations(target Vec3, dirs []Vec3) []float64 {
	t := Normalize(target)
	out := make([]float64, len(dirs))
	for i, d := range dirs {
		out[i] = SeparationDeg(t, d)
	}
	return out
}

// SeparationMatrix returns an n_targets x n_times matrix of angles in degrees
// between each target and the body as seen from the observer. Row i matches
// Separations(targets[i], ...) exactly.
func SeparationMatrix(targets, bodyPos, observerPos []Vec3) ([][]float64, error) {
	dirs, err := BodyDirections(bodyPos, observerPos)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(targets))
	for i, tgt := range targets {
		out[i] = Separations(tgt, dirs)
	}
	return out, nil
}
