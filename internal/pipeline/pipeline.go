// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"forcepmf/core/timeseries"

	"golang.org/x/sync/errgroup"
)

// Config controls loading.
type Config struct {
	Threads     int  // concurrent loads (>=1)
	Decorrelate bool // subsample by statistical inefficiency
	Equilibrate bool // drop the initial transient first
	Logger      *slog.Logger
}

// Loaded is one ensemble's samples after preprocessing.
type Loaded struct {
	Path    string
	Raw     int     // frames read
	Start   int     // first frame kept by equilibration
	G       float64 // statistical inefficiency of the kept region (1 when not computed)
	Samples []float64
	// Energies is parallel to Samples when the source read an energy column.
	Energies []float64
}

// LoadEnsembles loads paths through src, at most cfg.Threads at a time. The
// result is in the order of paths. The first error cancels the rest.
func LoadEnsembles(ctx context.Context, cfg Config, src Source, paths []string) ([]Loaded, error) {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	out := make([]Loaded, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Threads)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := src.Load(gctx, p)
			if err != nil {
				return err
			}
			l, err := preprocess(cfg, p, raw)
			if err != nil {
				return err
			}
			if cfg.Logger != nil {
				cfg.Logger.Debug("ensemble loaded", "path", p, "frames", l.Raw, "start", l.Start, "g", l.G, "kept", len(l.Samples))
			}
			out[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func preprocess(cfg Config, path string, s Series) (Loaded, error) {
	raw := s.Values
	if s.Energies != nil && len(s.Energies) != len(raw) {
		return Loaded{}, fmt.Errorf("%s: %d energies for %d samples", path, len(s.Energies), len(raw))
	}
	l := Loaded{Path: path, Raw: len(raw), G: 1, Samples: raw, Energies: s.Energies}
	if len(raw) < 2 || (!cfg.Equilibrate && !cfg.Decorrelate) {
		return l, nil
	}
	if cfg.Equilibrate {
		eq, err := timeseries.DetectEquilibration(raw, stride(len(raw)))
		if err != nil {
			return Loaded{}, fmt.Errorf("%s: %w", path, err)
		}
		l.Start, l.G = eq.Start, eq.G
		l.Samples = raw[eq.Start:]
		if l.Energies != nil {
			l.Energies = l.Energies[eq.Start:]
		}
	}
	if cfg.Decorrelate {
		g, err := timeseries.StatisticalInefficiency(l.Samples, true)
		if err != nil {
			return Loaded{}, fmt.Errorf("%s: %w", path, err)
		}
		idx := timeseries.Subsample(len(l.Samples), g)
		l.G = g
		l.Samples = pick(l.Samples, idx)
		if l.Energies != nil {
			l.Energies = pick(l.Energies, idx)
		}
	}
	return l, nil
}

func pick(x []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

// stride keeps equilibration detection to about 100 candidate starts.
func stride(n int) int {
	if s := n / 100; s > 1 {
		return s
	}
	return 1
}
