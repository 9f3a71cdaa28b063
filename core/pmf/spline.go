// core/pmf/spline.go
//
// Smooth PMFs from a maximum-likelihood B-spline fit. The model puts
//
//	p_t(x) = exp(-B(x) - u_t(x)) / Z_t,   B(x) = Σ_j c_j φ_j(x)
//
// on the fitted range, with φ_j a clamped B-spline basis and u_t either zero
// (fit to the reweighted target distribution) or the bias of ensemble t (fit
// to each ensemble's raw samples). The objective Σ_t a_t (⟨B⟩_t + log Z_t) is
// convex in c and minimized with Newton's method.
package pmf

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"forcepmf/core/bias"
	"forcepmf/core/mbar"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Weighting selects the spline objective.
type Weighting int

const (
	// KLDivergence fits B to the MBAR-reweighted distribution of the target state.
	KLDivergence Weighting = iota
	// SumKLDivergence fits B + u_k to every ensemble's own samples and sums the terms.
	SumKLDivergence
	// WeightedSum is SumKLDivergence with each term weighted by its share of samples.
	WeightedSum
)

func (w Weighting) String() string {
	switch w {
	case KLDivergence:
		return "kldivergence"
	case SumKLDivergence:
		return "sumkldivergence"
	case WeightedSum:
		return "weightedsum"
	default:
		return fmt.Sprintf("Weighting(%d)", int(w))
	}
}

// ParseWeighting accepts the String forms and the short names kl, sumkl and weighted.
func ParseWeighting(s string) (Weighting, error) {
	switch s {
	case "", "kldivergence", "kl":
		return KLDivergence, nil
	case "sumkldivergence", "sumkl":
		return SumKLDivergence, nil
	case "weightedsum", "weighted":
		return WeightedSum, nil
	}
	return 0, fmt.Errorf("unknown spline weighting %q (want kldivergence | sumkldivergence | weightedsum)", s)
}

// SplineOptions tunes Spline. Zero values pick the defaults.
type SplineOptions struct {
	Knots     int // basis functions, default 20
	Degree    int // default 3 (cubic)
	Weighting Weighting
	// Biases are the reduced bias potentials of the estimator's ensembles,
	// in column order. Required by the sum weightings.
	Biases []bias.Potential
	// TargetBias is the target state's potential for the sum weightings;
	// nil is the unbiased state. KLDivergence reads the target from
	// Options.Target instead.
	TargetBias bias.Potential
	// Grid is the number of quadrature points over the range, default 401.
	Grid int
}

const (
	defaultKnots  = 20
	defaultDegree = 3
	defaultGrid   = 401
)

// SplineFit is a fitted spline PMF.
type SplineFit struct {
	Weighting Weighting
	Knots     int
	Degree    int
	Coef      []float64
	// LogLikelihood is the log-likelihood of the in-range samples at Coef.
	LogLikelihood float64
	// Samples is the number of in-range samples the fit used.
	Samples int
	Profile *Profile

	basis   *bspline
	model   *splineModel
	points  []float64
	pointUt []float64 // target bias at points (sum weightings)
	gridUt  []float64 // target bias on the grid (sum weightings)
	ref     Reference
}

// Spline fits a B-spline PMF over the bins' range and evaluates it at the
// bin centers. Every bin of the result is defined; DF comes from the
// curvature of the log-likelihood at the optimum.
func Spline(est *mbar.Estimator, x []float64, bins *Bins, opts Options, so SplineOptions) (*SplineFit, error) {
	if bins == nil {
		return nil, fmt.Errorf("pmf: nil bins")
	}
	if bins.Periodic() > 0 {
		return nil, fmt.Errorf("pmf: spline fits need a non-periodic range")
	}
	m := est.Matrix()
	if m == nil {
		return nil, fmt.Errorf("pmf: estimator has no bias matrix")
	}
	if n, _ := m.Dims(); n != len(x) {
		return nil, fmt.Errorf("pmf: %d coordinates for %d samples", len(x), n)
	}
	if so.Knots == 0 {
		so.Knots = defaultKnots
	}
	if so.Degree == 0 {
		so.Degree = defaultDegree
	}
	if so.Grid == 0 {
		so.Grid = defaultGrid
	}
	if so.Grid%2 == 0 {
		so.Grid++
	}
	lo, _ := bins.Bounds(0)
	_, hi := bins.Bounds(bins.Len() - 1)
	basis, err := newBSpline(lo, hi, so.Knots, so.Degree)
	if err != nil {
		return nil, err
	}
	rw, err := est.Reweight(opts.Target)
	if err != nil {
		return nil, err
	}

	model := newSplineModel(basis, so.Grid)
	fit := &SplineFit{
		Weighting: so.Weighting,
		Knots:     so.Knots,
		Degree:    so.Degree,
		basis:     basis,
		model:     model,
		ref:       opts.Reference,
	}
	switch so.Weighting {
	case KLDivergence:
		fit.Samples, err = model.addReweighted(x, rw.LogW)
	case SumKLDivergence, WeightedSum:
		if _, k := m.Dims(); len(so.Biases) != k {
			return nil, fmt.Errorf("pmf: %d bias potentials for %d ensembles", len(so.Biases), k)
		}
		fit.Samples, err = model.addEnsembles(m, x, so.Biases, so.Weighting == WeightedSum)
		if so.TargetBias != nil {
			fit.gridUt = bias.Evaluate(so.TargetBias, model.grid)
		}
	default:
		return nil, fmt.Errorf("pmf: unknown spline weighting %v", so.Weighting)
	}
	if err != nil {
		return nil, err
	}

	fit.Coef, err = model.minimize()
	if err != nil {
		return nil, err
	}
	fit.LogLikelihood = -model.objective(fit.Coef, nil, nil, true)

	nb := bins.Len()
	fit.points = make([]float64, nb)
	for b := range fit.points {
		fit.points[b] = bins.Center(b)
	}
	if fit.gridUt != nil {
		fit.pointUt = bias.Evaluate(so.TargetBias, fit.points)
	}

	prof := &Profile{Method: "spline", Reference: opts.Reference, FTarget: rw.FTarget, Bins: make([]Bin, nb)}
	f, ref := fit.evaluate(fit.Coef, nil)
	counts := make([]int, nb)
	for _, xv := range x {
		if b := bins.Assign(xv); b >= 0 {
			counts[b]++
		}
	}
	for b := range prof.Bins {
		blo, bhi := bins.Bounds(b)
		prof.Bins[b] = Bin{Center: fit.points[b], Lo: blo, Hi: bhi, F: f[b], Count: counts[b], Defined: true}
	}
	if !opts.SkipUncertainty {
		if err := fit.uncertainties(prof, ref); err != nil {
			return nil, err
		}
	}
	fit.Profile = prof
	return fit, nil
}

// Parameters is the number of free coefficients. One is lost to the additive
// constant of B.
func (f *SplineFit) Parameters() int { return f.Knots - 1 }

// Criterion is an information criterion for comparing spline fits.
type Criterion int

const (
	AIC Criterion = iota
	BIC
)

// InformationCriteria returns AIC = 2p - 2 ln L or BIC = p ln n - 2 ln L.
func (f *SplineFit) InformationCriteria(c Criterion) float64 {
	p := float64(f.Parameters())
	if c == BIC {
		return p*math.Log(float64(f.Samples)) - 2*f.LogLikelihood
	}
	return 2*p - 2*f.LogLikelihood
}

// evaluate returns the profile at the fit's points for coefficients c and
// the index of the reference point (-1 for RefNone). bq, if non-nil, is B on
// the grid for c.
func (f *SplineFit) evaluate(c, bq []float64) ([]float64, int) {
	if bq == nil {
		bq = f.model.onGrid(c, nil)
	}
	logZ := f.model.logZ(bq, f.gridUt, nil)
	out := make([]float64, len(f.points))
	ref := -1
	for i, p := range f.points {
		v := f.basis.value(c, p) + logZ
		if f.pointUt != nil {
			v += f.pointUt[i]
		}
		out[i] = v
		if ref < 0 || v < out[ref] {
			ref = i
		}
	}
	if f.ref != RefLowest {
		return out, -1
	}
	shift := out[ref]
	for i := range out {
		out[i] -= shift
	}
	return out, ref
}

// uncertainties applies the delta method with the coefficient covariance
// taken as the pseudo-inverse of the negative log-likelihood Hessian.
func (f *SplineFit) uncertainties(prof *Profile, ref int) error {
	nb := f.Knots
	info := mat.NewSymDense(nb, nil)
	f.model.objective(f.Coef, nil, info, true)
	var eig mat.EigenSym
	if !eig.Factorize(info, true) {
		return fmt.Errorf("pmf: spline uncertainty: eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	cut := floats.Max(vals) * 1e-10

	var mean []float64
	if ref < 0 {
		bq := f.model.onGrid(f.Coef, nil)
		mean = make([]float64, nb)
		f.model.logZ(bq, f.gridUt, mean)
	}
	phiRef := make([]float64, nb)
	if ref >= 0 {
		f.basis.dense(f.points[ref], phiRef)
	}
	d := make([]float64, nb)
	for b := range prof.Bins {
		f.basis.dense(f.points[b], d)
		if ref >= 0 {
			floats.Sub(d, phiRef)
		} else {
			floats.Sub(d, mean)
		}
		v := 0.0
		for l, lam := range vals {
			if lam <= cut {
				continue
			}
			proj := 0.0
			for j := 0; j < nb; j++ {
				proj += d[j] * vecs.At(j, l)
			}
			v += proj * proj / lam
		}
		prof.Bins[b].DF = math.Sqrt(v)
	}
	return nil
}

// MCMCOptions tunes SplineFit.Sample. Zero values pick the defaults.
type MCMCOptions struct {
	Iterations int // proposals, default 10000
	Every      int // keep one state in Every, default 10
	// Step is the proposal standard deviation for one coefficient. The
	// default is 5% of the fitted coefficient range.
	Step float64
	// PriorScale sets the smoothness prior on neighbouring coefficients,
	// c[j+1]-c[j] ~ N(0, PriorScale/Knots). Default 500.
	PriorScale float64
	Seed       uint64
}

// Posterior holds kept Metropolis states of the spline coefficients.
type Posterior struct {
	Coef       [][]float64
	Acceptance float64
	fit        *SplineFit
}

// Sample runs a seeded Metropolis chain over the coefficients from the
// maximum-likelihood fit. The posterior is the sample likelihood times a
// Gaussian smoothness prior; each proposal moves one coefficient.
func (f *SplineFit) Sample(ctx context.Context, o MCMCOptions) (*Posterior, error) {
	if o.Iterations <= 0 {
		o.Iterations = 10000
	}
	if o.Every <= 0 {
		o.Every = 10
	}
	if o.PriorScale <= 0 {
		o.PriorScale = 500
	}
	if o.Step <= 0 {
		o.Step = 0.05 * (floats.Max(f.Coef) - floats.Min(f.Coef))
		if o.Step == 0 {
			o.Step = 0.05
		}
	}
	sigma2 := o.PriorScale / float64(f.Knots)
	logPrior := func(c []float64) float64 {
		s := 0.0
		for j := 1; j < len(c); j++ {
			d := c[j] - c[j-1]
			s += d * d
		}
		return -s / (2 * sigma2)
	}

	r := rand.New(rand.NewPCG(o.Seed, 0x5eed))
	c := append([]float64(nil), f.Coef...)
	bq := f.model.onGrid(c, nil)
	cur := -f.model.likelihoodOnGrid(c, bq) + logPrior(c)
	next := make([]float64, len(bq))
	post := &Posterior{fit: f}
	accepted := 0
	for it := 1; it <= o.Iterations; it++ {
		if it&0x3ff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		j := r.IntN(len(c))
		step := o.Step * r.NormFloat64()
		old := c[j]
		c[j] += step
		f.model.shiftGrid(bq, next, j, step)
		prop := -f.model.likelihoodOnGrid(c, next) + logPrior(c)
		if prop >= cur || r.Float64() < math.Exp(prop-cur) {
			cur = prop
			bq, next = next, bq
			accepted++
		} else {
			c[j] = old
		}
		if it%o.Every == 0 {
			post.Coef = append(post.Coef, append([]float64(nil), c...))
		}
	}
	post.Acceptance = float64(accepted) / float64(o.Iterations)
	return post, nil
}

// Band returns the lo and hi percentiles (0-100) of the profile over the
// kept states, at the fit's points and under the fit's reference.
func (p *Posterior) Band(lo, hi float64) (low, high []float64) {
	np := len(p.fit.points)
	cols := make([][]float64, np)
	for _, c := range p.Coef {
		v, _ := p.fit.evaluate(c, nil)
		for i := range v {
			cols[i] = append(cols[i], v[i])
		}
	}
	low = make([]float64, np)
	high = make([]float64, np)
	for i, col := range cols {
		if len(col) == 0 {
			low[i], high[i] = math.NaN(), math.NaN()
			continue
		}
		sort.Float64s(col)
		low[i] = stat.Quantile(lo/100, stat.Empirical, col, nil)
		high[i] = stat.Quantile(hi/100, stat.Empirical, col, nil)
	}
	return low, high
}

// Apply replaces DF with half the 16-84 percentile width and attaches the
// 2.5-97.5 band.
func (p *Posterior) Apply(prof *Profile) {
	l68, h68 := p.Band(16, 84)
	l95, h95 := p.Band(2.5, 97.5)
	for b := range prof.Bins {
		if b < len(l68) {
			prof.Bins[b].DF = 0.5 * (h68[b] - l68[b])
		}
	}
	prof.Band = &Band{Lo: 2.5, Hi: 97.5, Low: l95, High: h95}
}

// Band is a percentile band of the profile, one value per bin.
type Band struct {
	Lo, Hi    float64 // percentiles
	Low, High []float64
}

// bspline is a clamped B-spline basis with uniform interior knots.
type bspline struct {
	n, degree int
	lo, hi    float64
	knots     []float64
}

func newBSpline(lo, hi float64, n, degree int) (*bspline, error) {
	if degree < 1 {
		return nil, fmt.Errorf("pmf: spline degree must be at least 1, got %d", degree)
	}
	if n < degree+1 {
		return nil, fmt.Errorf("pmf: %d spline knots is too few for degree %d", n, degree)
	}
	if !(hi > lo) || math.IsInf(hi-lo, 0) {
		return nil, fmt.Errorf("pmf: bad spline range [%v, %v]", lo, hi)
	}
	interior := n - degree - 1
	knots := make([]float64, 0, n+degree+1)
	for i := 0; i <= degree; i++ {
		knots = append(knots, lo)
	}
	for i := 1; i <= interior; i++ {
		knots = append(knots, lo+(hi-lo)*float64(i)/float64(interior+1))
	}
	for i := 0; i <= degree; i++ {
		knots = append(knots, hi)
	}
	return &bspline{n: n, degree: degree, lo: lo, hi: hi, knots: knots}, nil
}

// span returns the knot interval holding x, clamped to the range.
func (b *bspline) span(x float64) int {
	if x >= b.hi {
		return b.n - 1
	}
	i := sort.Search(len(b.knots), func(j int) bool { return b.knots[j] > x }) - 1
	return min(max(i, b.degree), b.n-1)
}

// eval fills out[0..degree] with the basis functions that are nonzero at x
// and returns the index of the first.
func (b *bspline) eval(x float64, out []float64) int {
	x = min(max(x, b.lo), b.hi)
	i := b.span(x)
	d := b.degree
	left := make([]float64, d+1)
	right := make([]float64, d+1)
	out[0] = 1
	for j := 1; j <= d; j++ {
		left[j] = x - b.knots[i+1-j]
		right[j] = b.knots[i+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := out[r] / (right[r+1] + left[j-r])
			out[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		out[j] = saved
	}
	return i - d
}

// dense writes every basis function at x into out (length n).
func (b *bspline) dense(x float64, out []float64) {
	for j := range out {
		out[j] = 0
	}
	local := make([]float64, b.degree+1)
	first := b.eval(x, local)
	copy(out[first:], local)
}

func (b *bspline) value(c []float64, x float64) float64 {
	local := make([]float64, b.degree+1)
	first := b.eval(x, local)
	return floats.Dot(c[first:first+len(local)], local)
}

// splineTerm is one state of the objective. mean is the normalized
// sample average of the basis; u is the state's bias on the grid.
type splineTerm struct {
	weight float64 // in the objective
	count  float64 // in the log-likelihood
	mean   []float64
	u      []float64
}

type splineModel struct {
	basis *bspline
	grid  []float64
	quad  []float64  // quadrature weights on grid
	phi   *mat.Dense // grid × basis
	terms []splineTerm
}

func newSplineModel(b *bspline, q int) *splineModel {
	grid := make([]float64, q)
	for i := range grid {
		grid[i] = b.lo + (b.hi-b.lo)*float64(i)/float64(q-1)
	}
	// Weights of integrate.Simpsons on this grid, so every integral below
	// is a dot product.
	quad := make([]float64, q)
	unit := make([]float64, q)
	for i := range quad {
		unit[i] = 1
		quad[i] = integrate.Simpsons(grid, unit)
		unit[i] = 0
	}
	phi := mat.NewDense(q, b.n, nil)
	for i, x := range grid {
		b.dense(x, phi.RawRowView(i))
	}
	return &splineModel{basis: b, grid: grid, quad: quad, phi: phi}
}

func (m *splineModel) inRange(x float64) bool { return x >= m.basis.lo && x <= m.basis.hi }

// addReweighted adds the single target-state term from MBAR log weights.
func (m *splineModel) addReweighted(x, logW []float64) (int, error) {
	var idx []int
	var lw []float64
	for n, xv := range x {
		if m.inRange(xv) {
			idx = append(idx, n)
			lw = append(lw, logW[n])
		}
	}
	if len(idx) == 0 {
		return 0, fmt.Errorf("pmf: no samples in the spline range")
	}
	norm := floats.LogSumExp(lw)
	mean := make([]float64, m.basis.n)
	local := make([]float64, m.basis.degree+1)
	for i, n := range idx {
		w := math.Exp(lw[i] - norm)
		first := m.basis.eval(x[n], local)
		for r, v := range local {
			mean[first+r] += w * v
		}
	}
	m.terms = append(m.terms, splineTerm{weight: 1, count: float64(len(idx)), mean: mean, u: make([]float64, len(m.grid))})
	return len(idx), nil
}

// addEnsembles adds one term per ensemble from its own in-range samples.
func (m *splineModel) addEnsembles(mx *mbar.Matrix, x []float64, biases []bias.Potential, byShare bool) (int, error) {
	local := make([]float64, m.basis.degree+1)
	total := 0
	for k, p := range biases {
		lo, hi := mx.Rows(k)
		mean := make([]float64, m.basis.n)
		c := 0
		for n := lo; n < hi; n++ {
			if !m.inRange(x[n]) {
				continue
			}
			first := m.basis.eval(x[n], local)
			for r, v := range local {
				mean[first+r] += v
			}
			c++
		}
		if c == 0 {
			continue
		}
		floats.Scale(1/float64(c), mean)
		m.terms = append(m.terms, splineTerm{weight: 1, count: float64(c), mean: mean, u: bias.Evaluate(p, m.grid)})
		total += c
	}
	if total == 0 {
		return 0, fmt.Errorf("pmf: no samples in the spline range")
	}
	if byShare {
		for i := range m.terms {
			m.terms[i].weight = m.terms[i].count / float64(total)
		}
	}
	return total, nil
}

// onGrid returns B on the grid for c, reusing dst when it has room.
func (m *splineModel) onGrid(c, dst []float64) []float64 {
	if cap(dst) < len(m.grid) {
		dst = make([]float64, len(m.grid))
	}
	dst = dst[:len(m.grid)]
	out := mat.NewVecDense(len(dst), dst)
	out.MulVec(m.phi, mat.NewVecDense(len(c), c))
	return dst
}

// shiftGrid writes B on the grid after c[j] += step into dst.
func (m *splineModel) shiftGrid(bq, dst []float64, j int, step float64) {
	for q := range bq {
		dst[q] = bq[q] + step*m.phi.At(q, j)
	}
}

// logZ returns log ∫ exp(-B - u) over the range, with B given on the grid
// and u nil for zero. When mean is non-nil it receives ⟨φ⟩ under that density.
func (m *splineModel) logZ(bq, u, mean []float64) float64 {
	lz, p := m.density(bq, u)
	if mean != nil {
		for j := range mean {
			mean[j] = 0
		}
		for q, w := range p {
			if w == 0 {
				continue
			}
			floats.AddScaled(mean, w, m.phi.RawRowView(q))
		}
	}
	return lz
}

// density returns log Z and the normalized quadrature masses of exp(-B - u).
func (m *splineModel) density(bq, u []float64) (float64, []float64) {
	p := make([]float64, len(bq))
	mx := math.Inf(-1)
	for q := range bq {
		g := -bq[q]
		if u != nil {
			g -= u[q]
		}
		p[q] = g
		mx = math.Max(mx, g)
	}
	z := 0.0
	for q := range p {
		p[q] = m.quad[q] * math.Exp(p[q]-mx)
		z += p[q]
	}
	floats.Scale(1/z, p)
	return mx + math.Log(z), p
}

// objective returns Σ_t a_t (c·mean_t + log Z_t), with a_t the term weight,
// or the term count when byCount is set (the negative log-likelihood). grad
// and hess, when non-nil, receive the derivatives.
func (m *splineModel) objective(c, grad []float64, hess *mat.SymDense, byCount bool) float64 {
	nb := m.basis.n
	bq := m.onGrid(c, nil)
	if grad != nil {
		for j := range grad {
			grad[j] = 0
		}
	}
	if hess != nil {
		for i := 0; i < nb; i++ {
			for j := i; j < nb; j++ {
				hess.SetSym(i, j, 0)
			}
		}
	}
	ex := make([]float64, nb)
	total := 0.0
	for _, t := range m.terms {
		a := t.weight
		if byCount {
			a = t.count
		}
		lz, p := m.density(bq, t.u)
		total += a * (floats.Dot(c, t.mean) + lz)
		if grad == nil && hess == nil {
			continue
		}
		for j := range ex {
			ex[j] = 0
		}
		for q, w := range p {
			if w != 0 {
				floats.AddScaled(ex, w, m.phi.RawRowView(q))
			}
		}
		if grad != nil {
			for j := range grad {
				grad[j] += a * (t.mean[j] - ex[j])
			}
		}
		if hess != nil {
			for q, w := range p {
				if w == 0 {
					continue
				}
				row := m.phi.RawRowView(q)
				for i := 0; i < nb; i++ {
					if row[i] == 0 {
						continue
					}
					for j := i; j < nb; j++ {
						if row[j] != 0 {
							hess.SetSym(i, j, hess.At(i, j)+a*w*row[i]*row[j])
						}
					}
				}
			}
			for i := 0; i < nb; i++ {
				for j := i; j < nb; j++ {
					hess.SetSym(i, j, hess.At(i, j)-a*ex[i]*ex[j])
				}
			}
		}
	}
	return total
}

// likelihoodOnGrid is the negative log-likelihood with B already on the grid.
func (m *splineModel) likelihoodOnGrid(c, bq []float64) float64 {
	total := 0.0
	for _, t := range m.terms {
		lz, _ := m.density(bq, t.u)
		total += t.count * (floats.Dot(c, t.mean) + lz)
	}
	return total
}

func (m *splineModel) minimize() ([]float64, error) {
	p := optimize.Problem{
		Func: func(c []float64) float64 { return m.objective(c, nil, nil, false) },
		Grad: func(g, c []float64) { m.objective(c, g, nil, false) },
		Hess: func(h *mat.SymDense, c []float64) { m.objective(c, nil, h, false) },
	}
	settings := &optimize.Settings{GradientThreshold: 1e-9, MajorIterations: 500}
	res, err := optimize.Minimize(p, make([]float64, m.basis.n), settings, &optimize.Newton{})
	if res == nil {
		return nil, fmt.Errorf("pmf: spline fit: %w", err)
	}
	g := make([]float64, m.basis.n)
	m.objective(res.X, g, nil, false)
	if gn := floats.Norm(g, math.Inf(1)); gn > 1e-5 {
		return nil, fmt.Errorf("pmf: spline fit did not converge (status %v, |∇| = %.3g)", res.Status, gn)
	}
	// Fix the additive constant: mean coefficient zero.
	c := append([]float64(nil), res.X...)
	mean := floats.Sum(c) / float64(len(c))
	for i := range c {
		c[i] -= mean
	}
	return c, nil
}
