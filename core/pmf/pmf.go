// core/pmf/pmf.go
//
// Reduction of MBAR weights to a potential of mean force over the reaction
// coordinate. For bin b,
//
//	A[b] = -log Σ_{n∈b} w[n]
//
// with w the normalized weights of the pooled samples in the target state.
package pmf

import (
	"fmt"
	"math"

	"forcepmf/core/mbar"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Reference chooses the zero of the profile.
type Reference int

const (
	// RefLowest shifts the profile so the lowest defined bin is zero.
	// Uncertainties are then those of differences to that bin.
	RefLowest Reference = iota
	// RefNone reports -log p(b) unshifted.
	RefNone
)

func (r Reference) String() string {
	switch r {
	case RefLowest:
		return "lowest"
	case RefNone:
		return "none"
	default:
		return fmt.Sprintf("Reference(%d)", int(r))
	}
}

// ParseReference accepts "lowest" and "none".
func ParseReference(s string) (Reference, error) {
	switch s {
	case "", "lowest", "from-lowest":
		return RefLowest, nil
	case "none", "absolute":
		return RefNone, nil
	}
	return 0, fmt.Errorf("unknown PMF reference %q (want lowest | none)", s)
}

// Bin is one point of a profile. F and DF are in kT. Undefined bins (no
// samples) carry NaN in both.
type Bin struct {
	Center  float64
	Lo, Hi  float64
	F       float64
	DF      float64
	Count   int
	Defined bool
}

// Profile is a PMF over the reaction coordinate.
type Profile struct {
	Method    string
	Reference Reference
	// FTarget is the target state's reduced free energy relative to ensemble 0.
	FTarget float64
	Bins    []Bin
	// Band is set by Posterior.Apply on spline profiles.
	Band *Band
}

// Defined returns the number of defined bins.
func (p *Profile) Defined() int {
	c := 0
	for _, b := range p.Bins {
		if b.Defined {
			c++
		}
	}
	return c
}

// Options tunes the reductions.
type Options struct {
	Reference Reference
	// Target holds the reduced energy of every pooled sample in the target
	// state; nil means the unbiased state.
	Target []float64
	// SkipUncertainty leaves DF at zero for defined bins (bootstrap replicates).
	SkipUncertainty bool
	// Period > 0 makes KDE kernel distances minimum-image.
	Period float64
}

// Histogram reduces a solved estimator to a binned PMF. x[n] is the reaction
// coordinate of pooled sample n, in the estimator's row order.
func Histogram(est *mbar.Estimator, x []float64, bins *Bins, opts Options) (*Profile, error) {
	if bins == nil {
		return nil, fmt.Errorf("pmf: nil bins")
	}
	if m := est.Matrix(); m != nil {
		if n, _ := m.Dims(); n != len(x) {
			return nil, fmt.Errorf("pmf: %d coordinates for %d samples", len(x), n)
		}
	}
	rw, err := est.Reweight(opts.Target)
	if err != nil {
		return nil, err
	}

	nb := bins.Len()
	members := make([][]int, nb)
	for n, xv := range x {
		if b := bins.Assign(xv); b >= 0 {
			members[b] = append(members[b], n)
		}
	}

	prof := &Profile{Method: "histogram", Reference: opts.Reference, FTarget: rw.FTarget, Bins: make([]Bin, nb)}
	var defined []int
	var scratch []float64
	for b := 0; b < nb; b++ {
		lo, hi := bins.Bounds(b)
		bin := Bin{Center: bins.Center(b), Lo: lo, Hi: hi, Count: len(members[b]), F: math.NaN(), DF: math.NaN()}
		if len(members[b]) > 0 {
			scratch = scratch[:0]
			for _, n := range members[b] {
				scratch = append(scratch, rw.LogW[n])
			}
			bin.F = -floats.LogSumExp(scratch)
			bin.DF = 0
			bin.Defined = true
			defined = append(defined, b)
		}
		prof.Bins[b] = bin
	}
	if len(defined) == 0 {
		return prof, nil
	}

	ref := -1
	if opts.Reference == RefLowest {
		ref = defined[0]
		for _, b := range defined {
			if prof.Bins[b].F < prof.Bins[ref].F {
				ref = b
			}
		}
		shift := prof.Bins[ref].F
		for _, b := range defined {
			prof.Bins[b].F -= shift
		}
	}

	if opts.SkipUncertainty {
		return prof, nil
	}
	return prof, binUncertainties(rw, prof, members, defined, ref)
}

// binUncertainties treats "target state restricted to bin b" as an extra
// reweighted state with free energy f_T + A[b] and reads the variance of the
// relevant difference off the augmented covariance. Column 0 of the extra
// block is the target state itself.
func binUncertainties(rw *mbar.Reweighting, prof *Profile, members [][]int, defined []int, ref int) error {
	n := len(rw.LogW)
	extra := mat.NewDense(n, 1+len(defined), nil)
	for i, lw := range rw.LogW {
		extra.Set(i, 0, math.Exp(lw))
	}
	col := make(map[int]int, len(defined))
	var lw []float64
	for c, b := range defined {
		col[b] = 1 + c
		lw = lw[:0]
		for _, i := range members[b] {
			lw = append(lw, rw.LogW[i])
		}
		logp := floats.LogSumExp(lw)
		for _, i := range members[b] {
			extra.Set(i, 1+c, math.Exp(rw.LogW[i]-logp))
		}
	}
	theta, err := rw.Covariance(extra)
	if err != nil {
		return fmt.Errorf("pmf: uncertainty: %w", err)
	}
	k := rw.States()
	other := k // target column
	if ref >= 0 {
		other = k + col[ref]
	}
	for _, b := range defined {
		i := k + col[b]
		v := theta.At(i, i) + theta.At(other, other) - 2*theta.At(i, other)
		if v < 0 {
			v = 0
		}
		prof.Bins[b].DF = math.Sqrt(v)
	}
	return nil
}
