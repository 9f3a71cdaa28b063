// core/pmf/bootstrap.go
package pmf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"forcepmf/core/mbar"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// BootstrapOptions tunes Bootstrap.
type BootstrapOptions struct {
	Replicates int
	Seed       uint64
	Workers    int
	Solver     mbar.Options // Initial, when set, should be the point estimate
	Reference  Reference
}

// BootstrapResult holds per-bin standard deviations over replicates.
type BootstrapResult struct {
	DF []float64 // NaN where fewer than two replicates defined the bin
	// Used counts replicates that produced a profile; Unconverged of those
	// hit the iteration cap. Skipped replicates split the ensembles apart.
	Used, Unconverged, Skipped int
}

// Bootstrap resamples every ensemble's rows with replacement, re-solves MBAR
// and recomputes the histogram PMF. Replicate r draws from a generator seeded
// by (Seed, r), so results do not depend on Workers.
func Bootstrap(ctx context.Context, m *mbar.Matrix, x, target []float64, bins *Bins, opts BootstrapOptions) (*BootstrapResult, error) {
	if opts.Replicates < 2 {
		return nil, fmt.Errorf("pmf: bootstrap needs at least 2 replicates, got %d", opts.Replicates)
	}
	n, k := m.Dims()
	if len(x) != n || (target != nil && len(target) != n) {
		return nil, fmt.Errorf("pmf: bootstrap inputs do not match %d samples", n)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	type replicate struct {
		f           []float64
		ok          bool
		unconverged bool
	}
	reps := make([]replicate, opts.Replicates)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for r := 0; r < opts.Replicates; r++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(r)))
			rows := make([]int, 0, n)
			for i := 0; i < k; i++ {
				lo, hi := m.Rows(i)
				for j := lo; j < hi; j++ {
					rows = append(rows, lo+rng.IntN(hi-lo))
				}
			}
			sub, err := m.Subset(rows)
			if err != nil {
				return err
			}
			xs := make([]float64, len(rows))
			var ts []float64
			if target != nil {
				ts = make([]float64, len(rows))
			}
			for i, row := range rows {
				xs[i] = x[row]
				if ts != nil {
					ts[i] = target[row]
				}
			}

			est := mbar.New(sub, opts.Solver)
			_, err = est.Solve(gctx)
			unconverged := errors.Is(err, mbar.ErrNotConverged)
			switch {
			case err == nil, unconverged:
			case errors.Is(err, mbar.ErrDisconnected):
				return nil
			default:
				return err
			}
			prof, err := Histogram(est, xs, bins, Options{Reference: opts.Reference, Target: ts, SkipUncertainty: true})
			if err != nil {
				return err
			}
			f := make([]float64, len(prof.Bins))
			for b, bin := range prof.Bins {
				f[b] = bin.F
			}
			reps[r] = replicate{f: f, ok: true, unconverged: unconverged}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &BootstrapResult{DF: make([]float64, bins.Len())}
	for _, rp := range reps {
		switch {
		case !rp.ok:
			res.Skipped++
		default:
			res.Used++
			if rp.unconverged {
				res.Unconverged++
			}
		}
	}
	vals := make([]float64, 0, len(reps))
	for b := range res.DF {
		vals = vals[:0]
		for _, rp := range reps {
			if rp.ok && !math.IsNaN(rp.f[b]) {
				vals = append(vals, rp.f[b])
			}
		}
		if len(vals) < 2 {
			res.DF[b] = math.NaN()
			continue
		}
		res.DF[b] = stat.StdDev(vals, nil)
	}
	return res, nil
}

// Apply replaces the DF of every defined bin of p with the bootstrap value.
func (r *BootstrapResult) Apply(p *Profile) {
	for b := range p.Bins {
		if b < len(r.DF) && p.Bins[b].Defined {
			p.Bins[b].DF = r.DF[b]
		}
	}
}
