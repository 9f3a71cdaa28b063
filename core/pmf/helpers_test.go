package pmf

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"forcepmf/core/bias"
	"forcepmf/core/mbar"
)

// umbrellaData samples n points from each of five umbrellas of spring 4 at
// -1..1 and returns the bias matrix, the pooled coordinate, and the reduced
// energies of the target state u0(x) = x²/2, whose exact PMF is x²/2.
func umbrellaData(t *testing.T, seed uint64, n int) (*mbar.Matrix, []float64, []float64) {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, 99))
	pots := umbrellaBiases()
	ens := make([]bias.Ensemble, len(pots))
	samples := make([][]float64, len(pots))
	for i, c := range umbrellaCenters {
		ens[i] = bias.Ensemble{Potential: pots[i]}
		for j := 0; j < n; j++ {
			samples[i] = append(samples[i], c+0.5*r.NormFloat64())
		}
	}
	m, x, err := bias.BuildMatrix(ens, samples)
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}
	target := bias.Evaluate(bias.Harmonic{Spring: 1, Beta: 1}, x)
	return m, x, target
}

var umbrellaCenters = []float64{-1, -0.5, 0, 0.5, 1}

// umbrellaBiases are the restraints of umbrellaData. The unbiased PMF under
// them is flat.
func umbrellaBiases() []bias.Potential {
	out := make([]bias.Potential, len(umbrellaCenters))
	for i, c := range umbrellaCenters {
		out[i] = bias.Harmonic{Center: c, Spring: 4, Beta: 1}
	}
	return out
}

func solved(t *testing.T, m *mbar.Matrix) *mbar.Estimator {
	t.Helper()
	est := mbar.New(m, mbar.Options{})
	if _, err := est.Solve(context.Background()); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return est
}

// exactBin is -log of the standard normal mass in [lo, hi], up to a constant.
func exactBin(lo, hi float64) float64 {
	return -math.Log(0.5 * (math.Erf(hi/math.Sqrt2) - math.Erf(lo/math.Sqrt2)))
}
