// core/mbar/overlap.go
package mbar

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CheckConnected verifies that every ensemble is linked to every other one
// through a chain of pairwise sample overlaps.
//
// Ensembles i and j overlap when the forward reduced-energy differences
// u[n,j]-u[n,i] seen by i's samples reach down to the values seen by j's
// samples, i.e. min_{n∈i}(u[n,j]-u[n,i]) + min_{m∈j}(u[m,i]-u[m,j]) ≤ 0.
// When that fails the two work distributions are disjoint and the pair alone
// cannot pin Δf. The test depends only on u, not on the current offsets, so
// it runs before iteration.
func CheckConnected(m *Matrix) error {
	comps := Components(m)
	if len(comps) > 1 {
		return &ConfigurationError{Components: comps}
	}
	return nil
}

// Components returns the connected groups of ensembles, each sorted, ordered
// by their smallest member.
func Components(m *Matrix) [][]int {
	_, k := m.Dims()
	minFwd := make([][]float64, k)
	for i := range minFwd {
		minFwd[i] = make([]float64, k)
		for j := range minFwd[i] {
			minFwd[i][j] = math.Inf(1)
		}
	}
	for i := 0; i < k; i++ {
		lo, hi := m.Rows(i)
		row := minFwd[i]
		for n := lo; n < hi; n++ {
			ui := m.At(n, i)
			for j := 0; j < k; j++ {
				if d := m.At(n, j) - ui; d < row[j] {
					row[j] = d
				}
			}
		}
	}

	parent := make([]int, k)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if minFwd[i][j]+minFwd[j][i] <= 0 {
				if a, b := find(i), find(j); a != b {
					parent[b] = a
				}
			}
		}
	}

	groups := map[int][]int{}
	for i := 0; i < k; i++ {
		r := find(i)
		groups[r] = append(groups[r], i)
	}
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
	return out
}

// overlapMatrix returns O = Wᵀ W diag(N) and 1-λ₂, the spectral gap of O.
// O is similar to the symmetric D^½ WᵀW D^½, whose eigenvalues are computed
// instead. A gap near zero means some subset of ensembles barely overlaps the rest.
func overlapMatrix(w *mat.Dense, counts []float64) (*mat.Dense, float64) {
	_, k := w.Dims()
	var wtw mat.SymDense
	wtw.SymOuterK(1, w.T())

	o := mat.NewDense(k, k, nil)
	s := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			o.Set(i, j, wtw.At(i, j)*counts[j])
			if j >= i {
				s.SetSym(i, j, wtw.At(i, j)*math.Sqrt(counts[i]*counts[j]))
			}
		}
	}
	if k < 2 {
		return o, 1
	}
	var es mat.EigenSym
	if !es.Factorize(s, false) {
		return o, math.NaN()
	}
	vals := es.Values(nil) // ascending
	return o, 1 - vals[k-2]
}
