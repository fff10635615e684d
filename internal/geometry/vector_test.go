package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestRADecToUnit(t *testing.T) {
	tests := []struct {
		name    string
		ra, dec float64
		want    Vec3
	}{
		{"vernal equinox", 0, 0, Vec3{1, 0, 0}},
		{"ra 90", 90, 0, Vec3{0, 1, 0}},
		{"north pole", 0, 90, Vec3{0, 0, 1}},
		{"south pole", 123, -90, Vec3{0, 0, -1}},
		{"ra 180", 180, 0, Vec3{-1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RADecToUnit(tt.ra, tt.dec)
			for k := 0; k < 3; k++ {
				if math.Abs(got[k]-tt.want[k]) > 1e-12 {
					t.Errorf("RADecToUnit(%v, %v) = %v, want %v", tt.ra, tt.dec, got, tt.want)
					break
				}
			}
			if math.Abs(got.Norm()-1) > 1e-12 {
				t.Errorf("magnitude = %.15f, want 1", got.Norm())
			}
		})
	}
}

func TestUnitToRADecRoundTrip(t *testing.T) {
	for _, c := range [][2]float64{{10, 20}, {359.5, -45}, {180, 0}, {270, 89}} {
		ra, dec := UnitToRADec(RADecToUnit(c[0], c[1]))
		if math.Abs(ra-c[0]) > 1e-9 || math.Abs(dec-c[1]) > 1e-9 {
			t.Errorf("round trip (%v, %v) -> (%v, %v)", c[0], c[1], ra, dec)
		}
	}
}

func TestNormalizeZero(t *testing.T) {
	got := Normalize(Vec3{})
	if !got.IsZero() {
		t.Fatalf("Normalize(0) = %v, want zero vector", got)
	}
	sep := SeparationDeg(Vec3{1, 0, 0}, Vec3{})
	if math.IsNaN(sep) {
		t.Fatal("separation against zero vector is NaN")
	}
}

func TestCross(t *testing.T) {
	got := Cross(Vec3{1, 0, 0}, Vec3{0, 1, 0})
	if got != (Vec3{0, 0, 1}) {
		t.Errorf("x cross y = %v, want z", got)
	}
}

func TestSeparationClampsOvershoot(t *testing.T) {
	// Nearly parallel vectors whose normalized dot product can round above 1.
	a := Vec3{1, 1e-17, 0}
	b := Vec3{1, 0, 0}
	sep := SeparationDeg(a, b)
	if math.IsNaN(sep) || sep < 0 || sep > 1e-6 {
		t.Errorf("SeparationDeg = %v, want ~0", sep)
	}
	if got := SeparationDeg(Vec3{1, 0, 0}, Vec3{-1, 0, 0}); math.Abs(got-180) > 1e-12 {
		t.Errorf("antiparallel separation = %v, want 180", got)
	}
}

func TestAngularSeparationScaleInvariant(t *testing.T) {
	target := RADecToUnit(45, 30)
	obs := Vec3{7000, -200, 1500}
	rel := Vec3{1.2e8, 4.5e7, -3.3e7}

	base := AngularSeparation(target, obs.Add(rel), obs)
	for _, s := range []float64{1e-6, 0.5, 3, 1e4} {
		got := AngularSeparation(target, obs.Add(rel.Scale(s)), obs)
		if math.Abs(got-base) > 1e-9 {
			t.Errorf("scale %v: separation %.12f, want %.12f", s, got, base)
		}
	}
}

func TestSeparationMatrixMatchesScalar(t *testing.T) {
	targets, err := RADecToUnitBatch([]float64{0, 90, 200}, []float64{0, 45, -30})
	if err != nil {
		t.Fatal(err)
	}
	bodies := []Vec3{{1.5e8, 0, 0}, {0, 1.5e8, 0}, {1e8, 1e8, 1e7}}
	observers := []Vec3{{7000, 0, 0}, {0, 7000, 0}, {-7000, 0, 0}}

	m, err := SeparationMatrix(targets, bodies, observers)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 3 || len(m[0]) != 3 {
		t.Fatalf("matrix shape %dx%d, want 3x3", len(m), len(m[0]))
	}
	for i := range targets {
		for j := range bodies {
			want := AngularSeparation(targets[i], bodies[j], observers[j])
			if math.Abs(m[i][j]-want) > 1e-12 {
				t.Errorf("m[%d][%d] = %.15f, scalar = %.15f", i, j, m[i][j], want)
			}
		}
	}
}

func TestBatchLengthMismatch(t *testing.T) {
	if _, err := RADecToUnitBatch([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
	if _, err := SeparationMatrix(nil, []Vec3{{1, 0, 0}}, nil); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
}

func BenchmarkSeparationMatrix(b *testing.B) {
	targets := make([]Vec3, 100)
	for i := range targets {
		targets[i] = RADecToUnit(float64(i)*3.6, float64(i%90)-45)
	}
	bodies := make([]Vec3, 1440)
	observers := make([]Vec3, 1440)
	for i := range bodies {
		a := float64(i) * 2 * math.Pi / 1440
		bodies[i] = Vec3{1.5e8 * math.Cos(a/365), 1.5e8 * math.Sin(a/365), 0}
		observers[i] = Vec3{6778 * math.Cos(a*15), 6778 * math.Sin(a*15), 0}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SeparationMatrix(targets, bodies, observers)
	}
}
