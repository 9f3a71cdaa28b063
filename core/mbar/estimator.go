// core/mbar/estimator.go
//
// Multistate Bennett acceptance ratio. Given samples pooled from K ensembles
// and every sample's reduced potential in every ensemble, solve
//
//	f[i] = -log Σ_n exp(-u[n,i]) / Σ_k N_k exp(f[k]-u[n,k])
//
// for the reduced free-energy offsets f, gauge-fixed by f[0] = 0. All sums of
// exponentials go through log-sum-exp.

package mbar

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Method selects the iteration scheme.
type Method int

const (
	// MethodAdaptive takes, at every iteration, whichever of the
	// self-consistent step and the Newton–Raphson step lowers the gradient
	// norm more.
	MethodAdaptive Method = iota
	// MethodSelfConsistent uses plain fixed-point iteration.
	MethodSelfConsistent
)

func (m Method) String() string {
	switch m {
	case MethodAdaptive:
		return "adaptive"
	case MethodSelfConsistent:
		return "self-consistent"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod accepts "adaptive" and "self-consistent".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "adaptive":
		return MethodAdaptive, nil
	case "self-consistent", "sci":
		return MethodSelfConsistent, nil
	}
	return 0, fmt.Errorf("unknown MBAR method %q (want adaptive | self-consistent)", s)
}

const (
	DefaultTolerance     = 1e-10
	DefaultMaxIterations = 10000
)

// Options tunes Solve. The zero value is usable.
type Options struct {
	Tolerance     float64   // stop when max |Δf| falls below this (natural units)
	MaxIterations int       // iteration cap; hitting it is reported, not fatal
	Method        Method    // iteration scheme
	Workers       int       // goroutines for per-ensemble column reductions (<=1: serial)
	Initial       []float64 // optional starting offsets, len K
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// State tracks the single-use lifecycle of an Estimator.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateConverged
	StateNotConverged
	StateReduced
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateConverged:
		return "converged"
	case StateNotConverged:
		return "not-converged"
	case StateReduced:
		return "reduced"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result holds the solved offsets and their uncertainties.
type Result struct {
	F          []float64     // f[i] - f[0]
	DF         []float64     // standard error of F[i]
	Cov        *mat.SymDense // covariance of F (row/col 0 are zero)
	Overlap    *mat.Dense    // O = Wᵀ W diag(N)
	OverlapGap float64       // 1 - second largest eigenvalue of Overlap
	Iterations int
	MaxDelta   float64 // max |Δf| of the step that produced F
	GradNorm   float64 // gradient norm at F
	Converged  bool

	theta *mat.SymDense
}

// DeltaF returns the K×K matrix of F[j]-F[i].
func (r *Result) DeltaF() *mat.Dense {
	k := len(r.F)
	d := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			d.Set(i, j, r.F[j]-r.F[i])
		}
	}
	return d
}

// DeltaDF returns the K×K matrix of standard errors of F[j]-F[i].
func (r *Result) DeltaDF() *mat.Dense {
	k := len(r.F)
	d := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			d.Set(i, j, sqrtNonNeg(differenceVariance(r.theta, i, j)))
		}
	}
	return d
}

// Estimator is single-use: one Matrix, one Solve, then any number of
// reweightings.
type Estimator struct {
	m      *Matrix
	opts   Options
	state  State
	result *Result
	ws     *workspace
}

// New returns an estimator in StateReady, or StateUninitialized if m is nil.
func New(m *Matrix, opts Options) *Estimator {
	e := &Estimator{m: m, opts: opts.withDefaults()}
	if m != nil {
		e.state = StateReady
	}
	return e
}

// State reports the lifecycle state.
func (e *Estimator) State() State { return e.state }

// Matrix returns the bias matrix the estimator was built from.
func (e *Estimator) Matrix() *Matrix { return e.m }

// Result returns the solved result, or nil before Solve.
func (e *Estimator) Result() *Result { return e.result }

// Solve runs the iteration. It fails fast on a disconnected matrix. When the
// iteration cap is hit the best iterate is returned along with a
// *ConvergenceWarning; both return values are non-nil in that case.
func (e *Estimator) Solve(ctx context.Context) (*Result, error) {
	if e.state != StateReady {
		return nil, fmt.Errorf("%w: Solve called in state %s", ErrState, e.state)
	}
	if err := CheckConnected(e.m); err != nil {
		return nil, err
	}
	_, k := e.m.Dims()
	if e.opts.Initial != nil && len(e.opts.Initial) != k {
		return nil, inputErrorf("initial offsets", "have %d entries for %d ensembles", len(e.opts.Initial), k)
	}

	ws := newWorkspace(e.m, e.opts.Workers)
	f := make([]float64, k)
	if e.opts.Initial != nil {
		copy(f, e.opts.Initial)
		gauge(f)
	}

	st, err := e.iterate(ctx, ws, f)
	if err != nil {
		return nil, err
	}
	it, delta, converged := st.iterations, st.delta, st.converged

	// ws now holds the state for f; freeze it.
	res := &Result{
		F:          f,
		Iterations: it,
		MaxDelta:   delta,
		GradNorm:   st.gradNorm,
		Converged:  converged,
	}
	if err := e.finish(ws, res); err != nil {
		return nil, err
	}
	e.ws = ws
	e.result = res
	if converged {
		e.state = StateConverged
		return res, nil
	}
	e.state = StateNotConverged
	return res, &ConvergenceWarning{Iterations: it, MaxDelta: delta, GradNorm: st.gradNorm, Tolerance: e.opts.Tolerance}
}

// iterStats describes the iterate left in f by iterate.
type iterStats struct {
	iterations int
	delta      float64
	gradNorm   float64
	converged  bool
}

// iterate refines f in place. On return ws is evaluated at f.
func (e *Estimator) iterate(ctx context.Context, ws *workspace, f []float64) (iterStats, error) {
	k := len(f)
	log := e.opts.Logger

	gnorm, err := ws.evaluate(f)
	if err != nil {
		return iterStats{}, err
	}
	if k == 1 {
		return iterStats{gradNorm: gnorm, converged: true}, nil
	}

	best := append([]float64(nil), f...)
	bestNorm := gnorm
	bestDelta := math.Inf(1)
	delta := math.Inf(1)

	for it := 1; it <= e.opts.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return iterStats{iterations: it - 1, delta: delta, gradNorm: gnorm}, err
		}

		next := ws.selfConsistent()
		step := "sc"
		if e.opts.Method == MethodAdaptive {
			if nr, ok := ws.newton(f); ok {
				gSC, err := ws.evaluate(next)
				if err != nil {
					return iterStats{iterations: it, delta: delta}, err
				}
				gNR, err := ws.evaluate(nr)
				if err != nil {
					return iterStats{iterations: it, delta: delta}, err
				}
				if !math.IsNaN(gNR) && gNR < gSC {
					next, gnorm, step = nr, gNR, "nr"
				} else if gnorm, err = ws.evaluate(next); err != nil {
					return iterStats{iterations: it, delta: delta}, err
				}
			} else if gnorm, err = ws.evaluate(next); err != nil {
				return iterStats{iterations: it, delta: delta}, err
			}
		} else if gnorm, err = ws.evaluate(next); err != nil {
			return iterStats{iterations: it, delta: delta}, err
		}

		delta = maxAbsDiff(next, f)
		copy(f, next)
		if gnorm < bestNorm || math.IsNaN(bestNorm) {
			bestNorm, bestDelta = gnorm, delta
			copy(best, f)
		}
		if log != nil {
			log.Debug("mbar iteration", "iter", it, "step", step, "max_delta", delta, "grad_norm", gnorm)
		}
		if delta < e.opts.Tolerance {
			return iterStats{iterations: it, delta: delta, gradNorm: gnorm, converged: true}, nil
		}
	}

	// Cap reached: fall back to the iterate with the smallest gradient and
	// report that iterate's step, not the last one taken.
	copy(f, best)
	st := iterStats{iterations: e.opts.MaxIterations, delta: bestDelta, gradNorm: bestNorm}
	if _, err := ws.evaluate(f); err != nil {
		return st, err
	}
	return st, nil
}

// finish fills uncertainties and overlap diagnostics from ws evaluated at res.F.
func (e *Estimator) finish(ws *workspace, res *Result) error {
	w := ws.weights(res.F)
	counts := ws.countsFloat()
	theta, err := asymptoticCovariance(w, counts)
	if err != nil {
		return err
	}
	k := len(res.F)
	cov := mat.NewSymDense(k, nil)
	df := make([]float64, k)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			cov.SetSym(i, j, theta.At(i, j)-theta.At(i, 0)-theta.At(0, j)+theta.At(0, 0))
		}
		df[i] = sqrtNonNeg(cov.At(i, i))
	}
	res.theta = theta
	res.Cov = cov
	res.DF = df
	res.Overlap, res.OverlapGap = overlapMatrix(w, counts)
	return nil
}

// Weights returns the N×K matrix of normalized weights W[n,i] at the solved
// offsets. Each column sums to one.
func (e *Estimator) Weights() (*mat.Dense, error) {
	if e.result == nil {
		return nil, fmt.Errorf("%w: Weights called in state %s", ErrState, e.state)
	}
	return e.ws.weights(e.result.F), nil
}

func gauge(f []float64) {
	f0 := f[0]
	for i := range f {
		f[i] -= f0
	}
}

func maxAbsDiff(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		if v := math.Abs(a[i] - b[i]); v > d || math.IsNaN(v) {
			d = v
		}
	}
	return d
}
