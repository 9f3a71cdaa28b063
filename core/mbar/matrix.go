// core/mbar/matrix.go
package mbar

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is the N×K table of reduced potentials u[n,i]: sample n evaluated in
// ensemble i. Rows are grouped by ensemble of origin, in ensemble order, with
// counts[i] rows belonging to ensemble i. A Matrix is never modified after
// construction.
type Matrix struct {
	u      *mat.Dense
	counts []int
	starts []int
}

// NewMatrix validates dimensions and values and takes a private copy of u.
func NewMatrix(u mat.Matrix, counts []int) (*Matrix, error) {
	if u == nil {
		return nil, inputErrorf("bias matrix", "nil")
	}
	n, k := u.Dims()
	if k < 1 {
		return nil, inputErrorf("bias matrix", "no ensembles")
	}
	if len(counts) != k {
		return nil, inputErrorf("counts", "have %d entries for %d ensembles", len(counts), k)
	}
	total := 0
	starts := make([]int, k)
	for i, c := range counts {
		if c <= 0 {
			return nil, inputErrorf("counts", "ensemble %d has no samples", i)
		}
		starts[i] = total
		total += c
	}
	if total != n {
		return nil, inputErrorf("counts", "sum to %d but bias matrix has %d rows", total, n)
	}
	for r := 0; r < n; r++ {
		for c := 0; c < k; c++ {
			if v := u.At(r, c); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, inputErrorf("bias matrix", "non-finite value %v at sample %d, ensemble %d", v, r, c)
			}
		}
	}
	return &Matrix{
		u:      mat.DenseCopyOf(u),
		counts: append([]int(nil), counts...),
		starts: starts,
	}, nil
}

// Dims returns the number of samples and ensembles.
func (m *Matrix) Dims() (samples, ensembles int) { return m.u.Dims() }

// At returns u[n,i].
func (m *Matrix) At(n, i int) float64 { return m.u.At(n, i) }

// Counts returns a copy of the per-ensemble sample counts.
func (m *Matrix) Counts() []int { return append([]int(nil), m.counts...) }

// Rows returns the half-open row range [lo, hi) holding ensemble i's samples.
func (m *Matrix) Rows(i int) (lo, hi int) { return m.starts[i], m.starts[i] + m.counts[i] }

// Origin returns the ensemble that sample n was drawn from.
func (m *Matrix) Origin(n int) int {
	lo, hi := 0, len(m.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.starts[mid] <= n {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Subset builds a new Matrix from the given rows. Rows must be grouped by
// ensemble in non-decreasing ensemble order (bootstrap resampling keeps that).
func (m *Matrix) Subset(rows []int) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, inputErrorf("rows", "empty subset")
	}
	n, k := m.u.Dims()
	out := mat.NewDense(len(rows), k, nil)
	counts := make([]int, k)
	prev := 0
	for r, src := range rows {
		if src < 0 || src >= n {
			return nil, inputErrorf("rows", "row %d out of range [0,%d)", src, n)
		}
		o := m.Origin(src)
		if o < prev {
			return nil, inputErrorf("rows", "row %d (ensemble %d) follows ensemble %d", src, o, prev)
		}
		prev = o
		counts[o]++
		out.SetRow(r, m.u.RawRowView(src))
	}
	return NewMatrix(out, counts)
}
