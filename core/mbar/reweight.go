// core/mbar/reweight.go
package mbar

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Reweighting carries the pooled samples' weights in an unsampled target
// state, plus what is needed to propagate uncertainty to quantities derived
// from them.
type Reweighting struct {
	// LogW[n] is the normalized log-weight of sample n in the target state;
	// Σ_n exp(LogW[n]) = 1.
	LogW []float64
	// FTarget is the target state's reduced free energy in the gauge f[0]=0.
	FTarget float64

	w      *mat.Dense // N×K sampled-state weights
	counts []float64
}

// Reweight maps the pooled samples onto a target state with reduced energies
// u0 (len N; nil means the unbiased state, u0 = 0). It moves the estimator to
// StateReduced. Reweight may be called repeatedly after Solve, including
// after a non-converged Solve.
func (e *Estimator) Reweight(u0 []float64) (*Reweighting, error) {
	switch e.state {
	case StateConverged, StateNotConverged, StateReduced:
	default:
		return nil, fmt.Errorf("%w: Reweight called in state %s", ErrState, e.state)
	}
	n, _ := e.m.Dims()
	if u0 != nil && len(u0) != n {
		return nil, inputErrorf("target energies", "have %d entries for %d samples", len(u0), n)
	}
	logW := make([]float64, n)
	for i := 0; i < n; i++ {
		t := 0.0
		if u0 != nil {
			t = u0[i]
			if math.IsNaN(t) || math.IsInf(t, -1) {
				return nil, inputErrorf("target energies", "bad value %v at sample %d", t, i)
			}
		}
		logW[i] = -t - e.ws.logDenom[i]
	}
	fT := -floats.LogSumExp(logW)
	for i := range logW {
		logW[i] += fT
	}
	e.state = StateReduced
	return &Reweighting{
		LogW:    logW,
		FTarget: fT,
		w:       e.ws.weights(e.result.F),
		counts:  e.ws.countsFloat(),
	}, nil
}

// Covariance returns the asymptotic covariance Θ over the K sampled states
// followed by the extra reweighted states whose normalized weights are the
// columns of extra (N×M). Entry [K+a, K+b] covers extra states a and b.
func (r *Reweighting) Covariance(extra *mat.Dense) (*mat.SymDense, error) {
	n, k := r.w.Dims()
	if extra == nil {
		return asymptoticCovariance(r.w, r.counts)
	}
	en, m := extra.Dims()
	if en != n {
		return nil, inputErrorf("extra weights", "have %d rows for %d samples", en, n)
	}
	aug := mat.NewDense(n, k+m, nil)
	aug.Slice(0, n, 0, k).(*mat.Dense).Copy(r.w)
	aug.Slice(0, n, k, k+m).(*mat.Dense).Copy(extra)
	counts := make([]float64, k+m)
	copy(counts, r.counts)
	return asymptoticCovariance(aug, counts)
}

// States is the number of sampled states in Covariance's leading block.
func (r *Reweighting) States() int {
	_, k := r.w.Dims()
	return k
}
