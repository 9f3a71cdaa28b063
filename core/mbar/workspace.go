// core/mbar/workspace.go
package mbar

import (
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// workspace is the scratch state of one Solve call. Nothing in it is shared
// with other estimators, and only the iterating goroutine mutates it, except
// for the per-ensemble column reductions which write disjoint entries.
type workspace struct {
	m       *Matrix
	n, k    int
	counts  []float64
	logN    []float64
	workers int

	logDenom []float64   // log Σ_k N_k exp(f_k - u[n,k]), per sample
	lse      []float64   // log Σ_n exp(-u[n,i] - logDenom[n]), per ensemble
	terms    []float64   // len K
	cols     [][]float64 // one len-N buffer per worker
	f        []float64   // offsets the cached sums belong to
}

func newWorkspace(m *Matrix, workers int) *workspace {
	n, k := m.Dims()
	if workers > k {
		workers = k
	}
	if workers < 1 {
		workers = 1
	}
	ws := &workspace{
		m:        m,
		n:        n,
		k:        k,
		counts:   make([]float64, k),
		logN:     make([]float64, k),
		workers:  workers,
		logDenom: make([]float64, n),
		lse:      make([]float64, k),
		terms:    make([]float64, k),
		cols:     make([][]float64, workers),
		f:        make([]float64, k),
	}
	for i, c := range m.counts {
		ws.counts[i] = float64(c)
		ws.logN[i] = math.Log(float64(c))
	}
	for w := range ws.cols {
		ws.cols[w] = make([]float64, n)
	}
	return ws
}

func (ws *workspace) countsFloat() []float64 { return append([]float64(nil), ws.counts...) }

// evaluate caches logDenom and the column sums at f and returns the norm of
// the gradient of the MBAR objective, g_i = N_i (Σ_n W[n,i] - 1).
func (ws *workspace) evaluate(f []float64) (float64, error) {
	copy(ws.f, f)
	u := ws.m.u
	for n := 0; n < ws.n; n++ {
		row := u.RawRowView(n)
		for i := 0; i < ws.k; i++ {
			ws.terms[i] = ws.logN[i] + f[i] - row[i]
		}
		ws.logDenom[n] = floats.LogSumExp(ws.terms)
	}
	if err := ws.columns(); err != nil {
		return math.NaN(), err
	}
	norm := 0.0
	for i := 0; i < ws.k; i++ {
		g := ws.counts[i] * (math.Exp(f[i]+ws.lse[i]) - 1)
		norm += g * g
	}
	return math.Sqrt(norm), nil
}

// columns fills lse. Each ensemble's reduction is independent, so they are
// spread over the workers; each worker owns one scratch column.
func (ws *workspace) columns() error {
	if ws.workers == 1 {
		for i := 0; i < ws.k; i++ {
			ws.lse[i] = ws.column(i, ws.cols[0])
		}
		return nil
	}
	var g errgroup.Group
	for w := 0; w < ws.workers; w++ {
		buf := ws.cols[w]
		start := w
		g.Go(func() error {
			for i := start; i < ws.k; i += ws.workers {
				ws.lse[i] = ws.column(i, buf)
			}
			return nil
		})
	}
	return g.Wait()
}

func (ws *workspace) column(i int, buf []float64) float64 {
	u := ws.m.u
	for n := 0; n < ws.n; n++ {
		buf[n] = -u.At(n, i) - ws.logDenom[n]
	}
	return floats.LogSumExp(buf)
}

// selfConsistent returns the fixed-point update from the cached sums, gauge-fixed.
func (ws *workspace) selfConsistent() []float64 {
	next := make([]float64, ws.k)
	for i := range next {
		next[i] = -ws.lse[i]
	}
	gauge(next)
	return next
}

// newton returns f - H⁻¹g restricted to f[1:], keeping f[0] = 0. H is the
// Hessian of the convex MBAR objective:
//
//	H_ij = δ_ij N_i Σ_n W[n,i] - N_i N_j Σ_n W[n,i] W[n,j]
//
// ok is false when the reduced Hessian is singular.
func (ws *workspace) newton(f []float64) ([]float64, bool) {
	k := ws.k
	w := ws.weights(f)
	var wtw mat.SymDense
	wtw.SymOuterK(1, w.T())

	colSum := make([]float64, k)
	for i := 0; i < k; i++ {
		colSum[i] = math.Exp(f[i] + ws.lse[i])
	}

	h := mat.NewDense(k-1, k-1, nil)
	g := mat.NewVecDense(k-1, nil)
	for i := 1; i < k; i++ {
		g.SetVec(i-1, ws.counts[i]*(colSum[i]-1))
		for j := 1; j < k; j++ {
			v := -ws.counts[i] * ws.counts[j] * wtw.At(i, j)
			if i == j {
				v += ws.counts[i] * colSum[i]
			}
			h.Set(i-1, j-1, v)
		}
	}
	var step mat.VecDense
	if err := step.SolveVec(h, g); err != nil {
		return nil, false
	}
	next := make([]float64, k)
	for i := 1; i < k; i++ {
		next[i] = f[i] - step.AtVec(i-1)
		if math.IsNaN(next[i]) || math.IsInf(next[i], 0) {
			return nil, false
		}
	}
	return next, true
}

// weights returns W[n,i] = exp(f_i - u[n,i] - logDenom[n]). logDenom must
// already correspond to f.
func (ws *workspace) weights(f []float64) *mat.Dense {
	w := mat.NewDense(ws.n, ws.k, nil)
	u := ws.m.u
	for n := 0; n < ws.n; n++ {
		row := u.RawRowView(n)
		out := w.RawRowView(n)
		for i := 0; i < ws.k; i++ {
			out[i] = math.Exp(f[i] - row[i] - ws.logDenom[n])
		}
	}
	return w
}
