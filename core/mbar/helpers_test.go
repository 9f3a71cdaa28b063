package mbar

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// harmonic builds a bias matrix for reduced harmonic states
// u_k(x) = springs[k]/2 (x-centers[k])², sampling n points exactly from each.
// The exact offsets are f_k - f_0 = ½ log(springs[k]/springs[0]).
func harmonic(t *testing.T, seed uint64, centers, springs []float64, n int) (*Matrix, []float64) {
	t.Helper()
	k := len(centers)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	u := mat.NewDense(n*k, k, nil)
	counts := make([]int, k)
	for s := 0; s < k; s++ {
		counts[s] = n
		sigma := 1 / math.Sqrt(springs[s])
		for i := 0; i < n; i++ {
			x := centers[s] + sigma*r.NormFloat64()
			row := s*n + i
			for j := 0; j < k; j++ {
				d := x - centers[j]
				u.Set(row, j, 0.5*springs[j]*d*d)
			}
		}
	}
	m, err := NewMatrix(u, counts)
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}
	exact := make([]float64, k)
	for j := range exact {
		exact[j] = 0.5 * math.Log(springs[j]/springs[0])
	}
	return m, exact
}
