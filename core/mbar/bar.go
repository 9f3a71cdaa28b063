// core/mbar/bar.go
package mbar

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// BARResult is a two-state Bennett acceptance ratio estimate.
type BARResult struct {
	DeltaF     float64 // f1 - f0
	DDeltaF    float64 // asymptotic standard error
	Iterations int
}

const (
	barTolerance = 1e-12
	barMaxIter   = 500
)

// BAR solves the two-state Bennett equation for Δf = f1 - f0.
//
// wF[i] = u1(x_i) - u0(x_i) for samples drawn from state 0, and
// wR[j] = u0(x_j) - u1(x_j) for samples drawn from state 1. With
// M = log(N_F/N_R), Δf is the unique root of
//
//	Σ_F fermi(M + wF - Δf) - Σ_R fermi(-M + wR + Δf) = 0
//
// where fermi(z) = 1/(1+e^z). The left side increases monotonically in Δf,
// so the root is bracketed and bisected.
func BAR(wF, wR []float64) (BARResult, error) {
	if len(wF) == 0 || len(wR) == 0 {
		return BARResult{}, inputErrorf("work values", "need samples from both states (got %d forward, %d reverse)", len(wF), len(wR))
	}
	for _, w := range append(append([]float64(nil), wF...), wR...) {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return BARResult{}, inputErrorf("work values", "non-finite value %v", w)
		}
	}
	nF, nR := float64(len(wF)), float64(len(wR))
	M := math.Log(nF / nR)

	eq := func(df float64) float64 {
		s := 0.0
		for _, w := range wF {
			s += fermi(M + w - df)
		}
		for _, w := range wR {
			s -= fermi(-M + w + df)
		}
		return s
	}

	guess := 0.5 * (stat.Mean(wF, nil) - stat.Mean(wR, nil))
	lo, hi := guess-1, guess+1
	for step := 1.0; eq(lo) > 0; step *= 2 {
		lo -= step
	}
	for step := 1.0; eq(hi) < 0; step *= 2 {
		hi += step
	}

	it := 0
	for ; it < barMaxIter && hi-lo > barTolerance*math.Max(1, math.Abs(lo)); it++ {
		mid := 0.5 * (lo + hi)
		if eq(mid) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	df := 0.5 * (lo + hi)

	// Asymptotic variance (Shirts et al. 2003).
	varF := fermiSpread(wF, func(w float64) float64 { return fermi(M + w - df) })
	varR := fermiSpread(wR, func(w float64) float64 { return fermi(-M + w + df) })
	return BARResult{
		DeltaF:     df,
		DDeltaF:    sqrtNonNeg(varF/nF + varR/nR),
		Iterations: it,
	}, nil
}

// fermiSpread is <f²>/<f>² - 1 over the samples.
func fermiSpread(ws []float64, f func(float64) float64) float64 {
	s, s2 := 0.0, 0.0
	for _, w := range ws {
		v := f(w)
		s += v
		s2 += v * v
	}
	n := float64(len(ws))
	m := s / n
	if m == 0 {
		return math.Inf(1)
	}
	return (s2/n)/(m*m) - 1
}

func fermi(z float64) float64 {
	if z > 0 {
		e := math.Exp(-z)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(z))
}
