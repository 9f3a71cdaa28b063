package bias

import (
	"errors"
	"math"
	"testing"

	"forcepmf/core/mbar"
)

func TestBeta_RoomTemperature(t *testing.T) {
	// kT at 298.15 K is about 4.116 pN·nm.
	kT := 1 / Beta(DefaultTemperature)
	if math.Abs(kT-4.1164) > 1e-3 {
		t.Fatalf("kT=%v", kT)
	}
}

func TestHarmonic_PeriodicMinimumImage(t *testing.T) {
	h := Harmonic{Center: 170, Spring: 2, Beta: 1, Period: 360}
	if got, want := h.Reduced(-170), h.Reduced(190); math.Abs(got-want) > 1e-12 {
		t.Fatalf("wrap mismatch %v vs %v", got, want)
	}
	if got := h.Reduced(-170); math.Abs(got-0.5*2*20*20) > 1e-9 {
		t.Fatalf("got %v, want deviation of 20", got)
	}
	open := Harmonic{Center: 170, Spring: 2, Beta: 1}
	if open.Reduced(-170) <= h.Reduced(-170) {
		t.Fatalf("non-periodic restraint must not wrap")
	}
}

func TestConstantForce_Linear(t *testing.T) {
	c := ConstantForce{ForcePN: 12, Beta: 0.25}
	if got := c.Reduced(10); got != -30 {
		t.Fatalf("got %v", got)
	}
}

func TestBuildMatrix(t *testing.T) {
	beta := Beta(DefaultTemperature)
	ens := []Ensemble{
		{Name: "a", Force: 12, Potential: ConstantForce{ForcePN: 12, Beta: beta}},
		{Name: "b", Force: 13, Potential: ConstantForce{ForcePN: 13, Beta: beta}},
	}
	m, x, err := BuildMatrix(ens, [][]float64{{1, 2, 3}, {4, 5}})
	if err != nil {
		t.Fatal(err)
	}
	if n, k := m.Dims(); n != 5 || k != 2 {
		t.Fatalf("dims %dx%d", n, k)
	}
	if len(x) != 5 || x[3] != 4 {
		t.Fatalf("pooled %v", x)
	}
	if got, want := m.At(3, 1), -beta*13*4; math.Abs(got-want) > 1e-12 {
		t.Fatalf("u[3,1]=%v want %v", got, want)
	}

	if _, _, err := BuildMatrix(ens, [][]float64{{1}, {}}); !errors.Is(err, mbar.ErrInput) {
		t.Fatalf("empty ensemble: got %v", err)
	}
	if _, _, err := BuildMatrix(ens, [][]float64{{1}}); err == nil {
		t.Fatalf("mismatched sample sets accepted")
	}
}

func TestBuildMatrixWithEnergies(t *testing.T) {
	b1, b2 := Beta(290), Beta(310)
	ens := []Ensemble{
		{Name: "cold", Potential: ConstantForce{ForcePN: 5, Beta: b1}, Beta: b1},
		{Name: "hot", Potential: ConstantForce{ForcePN: 5, Beta: b2}, Beta: b2},
	}
	m, _, err := BuildMatrixWithEnergies(ens, [][]float64{{1, 2}, {3}}, [][]float64{{10, 20}, {30}})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.At(2, 0), b1*30-b1*5*3; math.Abs(got-want) > 1e-12 {
		t.Fatalf("u[2,0]=%v want %v", got, want)
	}
	if got, want := m.At(1, 1), b2*20-b2*5*2; math.Abs(got-want) > 1e-12 {
		t.Fatalf("u[1,1]=%v want %v", got, want)
	}

	if _, _, err := BuildMatrixWithEnergies(ens, [][]float64{{1, 2}, {3}}, [][]float64{{10}, {30}}); err == nil {
		t.Fatalf("short energy set accepted")
	}
	ens[1].Beta = 0
	if _, _, err := BuildMatrixWithEnergies(ens, [][]float64{{1, 2}, {3}}, [][]float64{{10, 20}, {30}}); err == nil {
		t.Fatalf("missing beta accepted")
	}
}
