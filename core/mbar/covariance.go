// core/mbar/covariance.go
package mbar

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// pinvRelTol drops eigenvalues below this fraction of the largest one (or of
// one, whichever is larger) when pseudo-inverting. One eigenvalue is
// structurally zero: the additive gauge.
const pinvRelTol = 1e-10

// asymptoticCovariance returns Θ, the asymptotic covariance of the reduced
// free energies of the states whose normalized weights are the columns of w
// (N×M). counts[j] is the number of samples drawn from state j; states that
// were only reweighted to (PMF bins, a target state) carry zero.
//
// With the thin SVD w = U Σ Vᵀ:
//
//	Θ = V Σ (I - Σ Vᵀ diag(N) V Σ)⁺ Σ Vᵀ
//
// which is the pseudo-inverse of the observed Fisher information of the MBAR
// estimating equations, expressed in the weight basis.
func asymptoticCovariance(w *mat.Dense, counts []float64) (*mat.SymDense, error) {
	_, m := w.Dims()
	if len(counts) != m {
		return nil, inputErrorf("counts", "have %d entries for %d weight columns", len(counts), m)
	}

	var svd mat.SVD
	if !svd.Factorize(w, mat.SVDThin) {
		return nil, errors.New("mbar: SVD of weight matrix failed")
	}
	s := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)
	r := len(s)

	// vs = V Σ  (m×r)
	vs := mat.NewDense(m, r, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < r; j++ {
			vs.Set(i, j, v.At(i, j)*s[j])
		}
	}

	// inner = I - (VΣ)ᵀ diag(N) (VΣ)
	inner := mat.NewSymDense(r, nil)
	for a := 0; a < r; a++ {
		for b := a; b < r; b++ {
			sum := 0.0
			for i := 0; i < m; i++ {
				if counts[i] != 0 {
					sum += vs.At(i, a) * counts[i] * vs.At(i, b)
				}
			}
			if a == b {
				inner.SetSym(a, b, 1-sum)
			} else {
				inner.SetSym(a, b, -sum)
			}
		}
	}

	pinv, err := pinvSym(inner)
	if err != nil {
		return nil, err
	}

	var tmp, theta mat.Dense
	tmp.Mul(vs, pinv)
	theta.Mul(&tmp, vs.T())

	out := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			out.SetSym(i, j, 0.5*(theta.At(i, j)+theta.At(j, i)))
		}
	}
	return out, nil
}

// pinvSym is the Moore–Penrose pseudo-inverse of a symmetric matrix.
func pinvSym(a *mat.SymDense) (*mat.Dense, error) {
	n := a.SymmetricDim()
	var es mat.EigenSym
	if !es.Factorize(a, true) {
		return nil, errors.New("mbar: eigendecomposition failed")
	}
	vals := es.Values(nil)
	var q mat.Dense
	es.VectorsTo(&q)

	maxAbs := 1.0
	for _, l := range vals {
		maxAbs = math.Max(maxAbs, math.Abs(l))
	}
	cut := pinvRelTol * maxAbs

	scaled := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.Abs(vals[j]) > cut {
				scaled.Set(i, j, q.At(i, j)/vals[j])
			}
		}
	}
	var out mat.Dense
	out.Mul(scaled, q.T())
	return &out, nil
}

// differenceVariance is Var(f_i - f_j) from Θ.
func differenceVariance(theta mat.Symmetric, i, j int) float64 {
	return theta.At(i, i) + theta.At(j, j) - 2*theta.At(i, j)
}

// sqrtNonNeg clips tiny negative round-off before taking the square root.
func sqrtNonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}
