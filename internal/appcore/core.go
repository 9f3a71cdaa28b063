// internal/appcore/core.go
package appcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"runtime"
	"strings"

	"forcepmf/core/bias"
	"forcepmf/core/mbar"
	"forcepmf/core/pmf"
	"forcepmf/internal/cmdutil"
	"forcepmf/internal/config"
	"forcepmf/internal/logging"
	"forcepmf/internal/output"
	"forcepmf/internal/pipeline"
	"forcepmf/internal/trajectory"
)

// Analysis is the outcome of one run, ready for reporting.
type Analysis struct {
	Ensembles []output.EnsembleInfo
	Result    *mbar.Result
	Profile   *pmf.Profile
	Bootstrap bool
	Spline    *output.SplineInfo // set for spline profiles
	// Warning is non-nil when MBAR stopped at its iteration cap. The
	// result is still usable.
	Warning *mbar.ConvergenceWarning
}

// Analyze loads every ensemble, solves MBAR and reduces the PMF. Errors from
// bad input are wrapped with cmdutil.Input.
func Analyze(ctx context.Context, cfg *config.Config, src pipeline.Source, log *slog.Logger) (*Analysis, error) {
	if log == nil {
		log = logging.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return nil, cmdutil.Input(err)
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if src == nil {
		src = pipeline.FileSource{Options: trajectory.Options{
			Column:       cfg.Input.Column,
			EnergyColumn: cfg.Input.EnergyColumn,
			Scale:        cfg.Input.Scale,
		}}
	}

	ens, err := ensembles(cfg)
	if err != nil {
		return nil, cmdutil.Input(err)
	}
	paths := make([]string, len(cfg.Ensembles))
	for i, e := range cfg.Ensembles {
		paths[i] = e.Path
	}

	loaded, err := pipeline.LoadEnsembles(ctx, pipeline.Config{
		Threads:     threads,
		Decorrelate: cfg.Input.Decorrelate,
		Equilibrate: cfg.Input.Equilibrate,
		Logger:      log,
	}, src, paths)
	if err != nil {
		return nil, cmdutil.LoadError(err)
	}

	mixed := cfg.MixedTemperatures()
	out := &Analysis{Ensembles: make([]output.EnsembleInfo, len(loaded))}
	samples := make([][]float64, len(loaded))
	var energies [][]float64
	if mixed {
		energies = make([][]float64, len(loaded))
	}
	for i, l := range loaded {
		samples[i] = l.Samples
		if mixed {
			if l.Energies == nil {
				return nil, cmdutil.Input(fmt.Errorf("%s: no energies read for a mixed-temperature run", l.Path))
			}
			energies[i] = l.Energies
		}
		out.Ensembles[i] = output.EnsembleInfo{
			Name: ens[i].Name, Force: ens[i].Force, Source: l.Path,
			Frames: l.Raw, Samples: len(l.Samples), G: l.G,
		}
	}

	m, x, err := bias.BuildMatrixWithEnergies(ens, samples, energies)
	if err != nil {
		return nil, cmdutil.Input(err)
	}
	n, k := m.Dims()
	log.Info("bias matrix built", "samples", n, "ensembles", k)

	method, err := mbar.ParseMethod(cfg.Solver.Method)
	if err != nil {
		return nil, cmdutil.Input(err)
	}
	solver := mbar.Options{
		Tolerance:     cfg.Solver.Tolerance,
		MaxIterations: cfg.Solver.MaxIterations,
		Method:        method,
		Workers:       threads,
		Logger:        log,
	}
	est := mbar.New(m, solver)
	res, err := est.Solve(ctx)
	var warn *mbar.ConvergenceWarning
	switch {
	case err == nil:
	case errors.As(err, &warn):
		out.Warning = warn
		cmdutil.Warnf(log, "%v; reporting the best estimate", warn)
	default:
		return nil, err
	}
	out.Result = res
	log.Info("mbar solved", "iterations", res.Iterations, "converged", res.Converged, "overlap_gap", res.OverlapGap)
	if res.OverlapGap < 0.03 {
		cmdutil.Warnf(log, "poor overlap between ensembles (spectral gap %.3g); offsets may be unreliable", res.OverlapGap)
	}

	// The target state is at the run temperature.
	beta := bias.Beta(cfg.Temperature)
	var targetBias bias.Potential
	if cfg.Target.Force != 0 {
		targetBias = bias.ConstantForce{ForcePN: cfg.Target.Force, Beta: beta}
	}
	var target []float64
	if targetBias != nil {
		target = bias.Evaluate(targetBias, x)
	}
	if mixed {
		if target == nil {
			target = make([]float64, len(x))
		}
		n := 0
		for _, e := range energies {
			for _, v := range e {
				target[n] += beta * v
				n++
			}
		}
	}
	bins, err := binning(cfg.PMF, x)
	if err != nil {
		return nil, cmdutil.Input(err)
	}
	ref, err := pmf.ParseReference(cfg.PMF.Reference)
	if err != nil {
		return nil, cmdutil.Input(err)
	}
	opts := pmf.Options{Reference: ref, Target: target, Period: bins.Periodic()}

	switch cfg.PMF.Method {
	case "kde":
		points := make([]float64, bins.Len())
		for i := range points {
			points[i] = bins.Center(i)
		}
		out.Profile, err = pmf.KDE(est, x, points, cfg.PMF.Bandwidth, opts)
	case "spline":
		err = spline(ctx, cfg, est, x, bins, opts, ens, targetBias, out, log)
	default:
		out.Profile, err = pmf.Histogram(est, x, bins, opts)
	}
	if err != nil {
		return nil, err
	}
	if undef := bins.Len() - out.Profile.Defined(); undef > 0 {
		log.Info("pmf bins without samples", "undefined", undef, "bins", bins.Len())
	}

	if cfg.PMF.Bootstrap > 0 {
		if cfg.PMF.Method != "histogram" {
			cmdutil.Warnf(log, "bootstrap uncertainties are only computed for histogram PMFs")
			return out, nil
		}
		bopts := solver
		bopts.Initial = res.F
		bopts.Workers = 1
		bopts.Logger = nil
		br, err := pmf.Bootstrap(ctx, m, x, target, bins, pmf.BootstrapOptions{
			Replicates: cfg.PMF.Bootstrap,
			Seed:       cfg.PMF.Seed,
			Workers:    threads,
			Solver:     bopts,
			Reference:  ref,
		})
		if err != nil {
			return nil, err
		}
		br.Apply(out.Profile)
		out.Bootstrap = true
		log.Info("bootstrap done", "replicates", br.Used, "unconverged", br.Unconverged, "skipped", br.Skipped)
		if br.Skipped > 0 {
			cmdutil.Warnf(log, "%d bootstrap replicates split into disconnected ensembles and were skipped", br.Skipped)
		}
	}
	return out, nil
}

// spline fits the spline PMF into out, sampling percentile bands when asked.
func spline(ctx context.Context, cfg *config.Config, est *mbar.Estimator, x []float64, bins *pmf.Bins,
	opts pmf.Options, ens []bias.Ensemble, targetBias bias.Potential, out *Analysis, log *slog.Logger) error {
	sc := cfg.PMF.Spline
	w, err := pmf.ParseWeighting(sc.Weighting)
	if err != nil {
		return cmdutil.Input(err)
	}
	so := pmf.SplineOptions{Knots: sc.Knots, Degree: sc.Degree, Weighting: w, TargetBias: targetBias}
	if w != pmf.KLDivergence {
		so.Biases = make([]bias.Potential, len(ens))
		for i, e := range ens {
			so.Biases[i] = e.Potential
		}
	}
	fit, err := pmf.Spline(est, x, bins, opts, so)
	if err != nil {
		return cmdutil.Input(err)
	}
	info := &output.SplineInfo{
		Knots:         fit.Knots,
		Degree:        fit.Degree,
		Weighting:     fit.Weighting.String(),
		Samples:       fit.Samples,
		LogLikelihood: fit.LogLikelihood,
		AIC:           fit.InformationCriteria(pmf.AIC),
		BIC:           fit.InformationCriteria(pmf.BIC),
	}
	log.Info("spline fitted", "knots", info.Knots, "samples", info.Samples, "aic", info.AIC, "bic", info.BIC)
	if sc.MCMC > 0 {
		post, err := fit.Sample(ctx, pmf.MCMCOptions{
			Iterations: sc.MCMC,
			Every:      sc.MCMCEvery,
			PriorScale: sc.PriorScale,
			Seed:       cfg.PMF.Seed,
		})
		if err != nil {
			return err
		}
		post.Apply(fit.Profile)
		info.MCMCStates = len(post.Coef)
		info.Acceptance = post.Acceptance
		log.Info("spline posterior sampled", "states", info.MCMCStates, "acceptance", info.Acceptance)
		if info.MCMCStates < 20 {
			cmdutil.Warnf(log, "only %d posterior states kept; percentile bands are rough", info.MCMCStates)
		}
	}
	out.Profile = fit.Profile
	out.Spline = info
	return nil
}

func ensembles(cfg *config.Config) ([]bias.Ensemble, error) {
	out := make([]bias.Ensemble, len(cfg.Ensembles))
	for i, e := range cfg.Ensembles {
		beta := bias.Beta(cfg.EnsembleTemperature(i))
		name := e.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
		}
		var p bias.Potential
		switch cfg.Bias {
		case "harmonic":
			p = bias.Harmonic{Center: e.Center, Spring: e.Spring, Beta: beta, Period: e.Period}
		case "constant-force", "":
			p = bias.ConstantForce{ForcePN: e.Force, Beta: beta}
		default:
			return nil, fmt.Errorf("unknown bias %q", cfg.Bias)
		}
		out[i] = bias.Ensemble{Name: name, Force: e.Force, Potential: p, Beta: beta}
	}
	return out, nil
}

// binning uses the configured range, falling back to the sample range.
func binning(c config.PMFConfig, x []float64) (*pmf.Bins, error) {
	if c.Period > 0 {
		lo := 0.0
		if c.Min != nil {
			lo = *c.Min
		}
		return pmf.NewPeriodicBins(lo, c.Period, c.Bins)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if c.Min != nil {
		lo = *c.Min
	}
	if c.Max != nil {
		hi = *c.Max
	}
	if hi == lo {
		hi = lo + 1
	}
	return pmf.NewUniformBins(lo, hi, c.Bins)
}
