package pmfcli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"forcepmf/internal/clibase"
	"forcepmf/internal/cliutil"
	"forcepmf/internal/config"
)

type sliceValue struct{ dst *[]string }

func (s *sliceValue) String() string {
	if s.dst == nil {
		return ""
	}
	return strings.Join(*s.dst, ",")
}
func (s *sliceValue) Set(v string) error { *s.dst = append(*s.dst, v); return nil }

// Options is the parsed forcepmf command line.
type Options struct {
	clibase.Common

	ConfigPath string
	Forces     []string // FORCE:PATH

	// Run knobs; only the ones set on the command line reach the config.
	Temperature  float64
	Column       int
	EnergyColumn int
	Scale        float64
	Decorrelate  bool
	Equilibrate  bool
	Bins         int
	Min          float64
	Max          float64
	PMFMethod    string
	Reference    string
	Bandwidth    float64
	Bootstrap    int
	Seed         uint64
	TargetForce  float64
	Solver       string
	Tolerance    float64
	MaxIter      int

	// Spline method
	Knots      int
	Degree     int
	Weighting  string
	MCMC       int
	MCMCEvery  int
	PriorScale float64

	// Extra outputs
	Plot       string
	Covariance bool
	RunID      string

	set map[string]bool
}

// IsSet reports whether flag name was given explicitly.
func (o *Options) IsSet(name string) bool { return o.set[name] }

func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	clibase.UsageCommon(fs, name, "MBAR free energies and PMFs from constant-force extension traces", func(out io.Writer, def func(string) string) {
		_, _ = fmt.Fprintln(out, "Usage:")
		_, _ = fmt.Fprintf(out, "  %s [options] --config run.yaml\n", name)
		_, _ = fmt.Fprintf(out, "  %s [options] --force 12.1:trace1.tsv --force 12.4:trace2.tsv ...\n", name)

		_, _ = fmt.Fprintln(out, "\nInput:")
		_, _ = fmt.Fprintln(out, "      --config string        YAML run file; flags below override it")
		_, _ = fmt.Fprintln(out, "      --force string         FORCE:PATH (pN, glob allowed). Repeatable.")
		_, _ = fmt.Fprintf(out, "      --temperature float    Temperature in K [%s]\n", def("temperature"))
		_, _ = fmt.Fprintf(out, "      --column int           1-based extension column (0=auto) [%s]\n", def("column"))
		_, _ = fmt.Fprintf(out, "      --energy-column int    1-based unbiased energy column, pN·nm (0=none) [%s]\n", def("energy-column"))
		_, _ = fmt.Fprintf(out, "      --scale float          Multiply extensions by this factor [%s]\n", def("scale"))
		_, _ = fmt.Fprintln(out, "      --decorrelate          Subsample by statistical inefficiency")
		_, _ = fmt.Fprintln(out, "      --equilibrate          Drop the initial transient first")

		_, _ = fmt.Fprintln(out, "\nPMF:")
		_, _ = fmt.Fprintf(out, "      --pmf-method string    histogram | kde | spline [%s]\n", def("pmf-method"))
		_, _ = fmt.Fprintf(out, "      --bins int             Number of bins / KDE points [%s]\n", def("bins"))
		_, _ = fmt.Fprintln(out, "      --min float            Lower edge (default: smallest sample)")
		_, _ = fmt.Fprintln(out, "      --max float            Upper edge (default: largest sample)")
		_, _ = fmt.Fprintf(out, "      --reference string     lowest | none [%s]\n", def("reference"))
		_, _ = fmt.Fprintf(out, "      --bandwidth float      KDE bandwidth (0=Scott) [%s]\n", def("bandwidth"))
		_, _ = fmt.Fprintf(out, "      --bootstrap int        Bootstrap replicates for bin errors (0=off) [%s]\n", def("bootstrap"))
		_, _ = fmt.Fprintf(out, "      --seed int             Bootstrap and MCMC seed [%s]\n", def("seed"))
		_, _ = fmt.Fprintf(out, "      --target-force float   Force (pN) of the reported state [%s]\n", def("target-force"))

		_, _ = fmt.Fprintln(out, "\nSpline PMF:")
		_, _ = fmt.Fprintf(out, "      --spline-knots int     B-spline basis functions [%s]\n", def("spline-knots"))
		_, _ = fmt.Fprintf(out, "      --spline-degree int    B-spline degree [%s]\n", def("spline-degree"))
		_, _ = fmt.Fprintf(out, "      --spline-weighting s   kldivergence | sumkldivergence | weightedsum [%s]\n", def("spline-weighting"))
		_, _ = fmt.Fprintf(out, "      --mcmc int             Metropolis proposals for percentile bands (0=off) [%s]\n", def("mcmc"))
		_, _ = fmt.Fprintf(out, "      --mcmc-every int       Keep one posterior state in N [%s]\n", def("mcmc-every"))
		_, _ = fmt.Fprintf(out, "      --prior-scale float    Smoothness prior scale [%s]\n", def("prior-scale"))

		_, _ = fmt.Fprintln(out, "\nSolver:")
		_, _ = fmt.Fprintf(out, "      --solver string        adaptive | self-consistent [%s]\n", def("solver"))
		_, _ = fmt.Fprintf(out, "      --tolerance float      Convergence tolerance on max |Δf| [%s]\n", def("tolerance"))
		_, _ = fmt.Fprintf(out, "      --max-iterations int   Iteration cap [%s]\n", def("max-iterations"))

		_, _ = fmt.Fprintln(out, "\nExtra outputs:")
		_, _ = fmt.Fprintln(out, "      --plot string          Write the PMF as PNG")
		_, _ = fmt.Fprintln(out, "      --covariance           Also print the offset covariance matrix")
		_, _ = fmt.Fprintln(out, "      --run-id string        Run identifier (default: random UUID)")
	})
	return fs
}

// ParseArgs parses argv. Trailing positionals are read as FORCE:PATH specs.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var o Options
	var help bool
	d := config.Default()

	noHeader := clibase.Register(fs, &o.Common)

	fs.StringVar(&o.ConfigPath, "config", "", "YAML run file")
	fs.StringVar(&o.ConfigPath, "c", "", "alias of --config")
	fs.Var(&sliceValue{dst: &o.Forces}, "force", "FORCE:PATH; repeatable")

	fs.Float64Var(&o.Temperature, "temperature", d.Temperature, "temperature (K)")
	fs.IntVar(&o.Column, "column", d.Input.Column, "1-based extension column (0=auto)")
	fs.IntVar(&o.EnergyColumn, "energy-column", d.Input.EnergyColumn, "1-based unbiased energy column (0=none)")
	fs.Float64Var(&o.Scale, "scale", d.Input.Scale, "extension scale factor")
	fs.BoolVar(&o.Decorrelate, "decorrelate", d.Input.Decorrelate, "subsample by statistical inefficiency")
	fs.BoolVar(&o.Equilibrate, "equilibrate", d.Input.Equilibrate, "drop initial transient")

	fs.StringVar(&o.PMFMethod, "pmf-method", d.PMF.Method, "histogram | kde | spline")
	fs.IntVar(&o.Bins, "bins", d.PMF.Bins, "number of bins")
	fs.Float64Var(&o.Min, "min", 0, "lower edge")
	fs.Float64Var(&o.Max, "max", 0, "upper edge")
	fs.StringVar(&o.Reference, "reference", d.PMF.Reference, "lowest | none")
	fs.Float64Var(&o.Bandwidth, "bandwidth", d.PMF.Bandwidth, "KDE bandwidth")
	fs.IntVar(&o.Bootstrap, "bootstrap", d.PMF.Bootstrap, "bootstrap replicates")
	fs.Uint64Var(&o.Seed, "seed", d.PMF.Seed, "bootstrap and MCMC seed")
	fs.Float64Var(&o.TargetForce, "target-force", d.Target.Force, "target force (pN)")

	fs.IntVar(&o.Knots, "spline-knots", d.PMF.Spline.Knots, "B-spline basis functions")
	fs.IntVar(&o.Degree, "spline-degree", d.PMF.Spline.Degree, "B-spline degree")
	fs.StringVar(&o.Weighting, "spline-weighting", d.PMF.Spline.Weighting, "kldivergence | sumkldivergence | weightedsum")
	fs.IntVar(&o.MCMC, "mcmc", d.PMF.Spline.MCMC, "Metropolis proposals (0=off)")
	fs.IntVar(&o.MCMCEvery, "mcmc-every", d.PMF.Spline.MCMCEvery, "keep one state in N")
	fs.Float64Var(&o.PriorScale, "prior-scale", d.PMF.Spline.PriorScale, "smoothness prior scale")

	fs.StringVar(&o.Solver, "solver", d.Solver.Method, "adaptive | self-consistent")
	fs.Float64Var(&o.Tolerance, "tolerance", d.Solver.Tolerance, "convergence tolerance")
	fs.IntVar(&o.MaxIter, "max-iterations", d.Solver.MaxIterations, "iteration cap")

	fs.StringVar(&o.Plot, "plot", "", "PMF PNG path")
	fs.BoolVar(&o.Covariance, "covariance", false, "print covariance")
	fs.StringVar(&o.RunID, "run-id", "", "run identifier")
	fs.BoolVar(&help, "h", false, "show this help [false]")

	flagArgs, posArgs := cliutil.SplitFlagsAndPositionals(fs, argv)
	if err := fs.Parse(flagArgs); err != nil {
		return o, err
	}
	if help {
		return o, flag.ErrHelp
	}
	o.Common.Header = !*noHeader
	if o.Version {
		return o, nil
	}
	o.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.Forces = append(o.Forces, posArgs...)

	if err := clibase.Validate(&o.Common); err != nil {
		return o, err
	}
	if o.ConfigPath == "" && len(o.Forces) == 0 {
		return o, errors.New("provide --config or at least one --force FORCE:PATH")
	}
	return o, nil
}

// Config merges the run file (if any), the --force inputs and every
// explicitly set flag into one validated configuration.
func (o *Options) Config() (*config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		c, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if len(o.Forces) > 0 {
		in, err := cliutil.ParseForceSpecs(o.Forces)
		if err != nil {
			return nil, err
		}
		if o.ConfigPath != "" && cfg.Bias != "constant-force" {
			return nil, fmt.Errorf("--force cannot extend a %s run file", cfg.Bias)
		}
		for _, fi := range in {
			cfg.Ensembles = append(cfg.Ensembles, config.EnsembleConfig{Path: fi.Path, Force: fi.Force})
		}
	}

	if o.IsSet("temperature") {
		cfg.Temperature = o.Temperature
	}
	if o.IsSet("column") {
		cfg.Input.Column = o.Column
	}
	if o.IsSet("energy-column") {
		cfg.Input.EnergyColumn = o.EnergyColumn
	}
	if o.IsSet("scale") {
		cfg.Input.Scale = o.Scale
	}
	if o.IsSet("decorrelate") {
		cfg.Input.Decorrelate = o.Decorrelate
	}
	if o.IsSet("equilibrate") {
		cfg.Input.Equilibrate = o.Equilibrate
	}
	if o.IsSet("pmf-method") {
		cfg.PMF.Method = o.PMFMethod
	}
	if o.IsSet("bins") {
		cfg.PMF.Bins = o.Bins
	}
	if o.IsSet("min") {
		v := o.Min
		cfg.PMF.Min = &v
	}
	if o.IsSet("max") {
		v := o.Max
		cfg.PMF.Max = &v
	}
	if o.IsSet("reference") {
		cfg.PMF.Reference = o.Reference
	}
	if o.IsSet("bandwidth") {
		cfg.PMF.Bandwidth = o.Bandwidth
	}
	if o.IsSet("bootstrap") {
		cfg.PMF.Bootstrap = o.Bootstrap
	}
	if o.IsSet("seed") {
		cfg.PMF.Seed = o.Seed
	}
	if o.IsSet("target-force") {
		cfg.Target.Force = o.TargetForce
	}
	if o.IsSet("spline-knots") {
		cfg.PMF.Spline.Knots = o.Knots
	}
	if o.IsSet("spline-degree") {
		cfg.PMF.Spline.Degree = o.Degree
	}
	if o.IsSet("spline-weighting") {
		cfg.PMF.Spline.Weighting = o.Weighting
	}
	if o.IsSet("mcmc") {
		cfg.PMF.Spline.MCMC = o.MCMC
	}
	if o.IsSet("mcmc-every") {
		cfg.PMF.Spline.MCMCEvery = o.MCMCEvery
	}
	if o.IsSet("prior-scale") {
		cfg.PMF.Spline.PriorScale = o.PriorScale
	}
	if o.IsSet("solver") {
		cfg.Solver.Method = o.Solver
	}
	if o.IsSet("tolerance") {
		cfg.Solver.Tolerance = o.Tolerance
	}
	if o.IsSet("max-iterations") {
		cfg.Solver.MaxIterations = o.MaxIter
	}
	if o.IsSet("threads") || o.IsSet("t") {
		cfg.Threads = o.Threads
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
