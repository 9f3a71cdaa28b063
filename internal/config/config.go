// Package config loads and validates forcepmf run descriptions (YAML).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is one analysis run.
type Config struct {
	// Temperature in K.
	Temperature float64 `yaml:"temperature" validate:"gt=0"`
	// Bias is the potential family of every ensemble: constant-force or harmonic.
	Bias      string           `yaml:"bias" validate:"oneof=constant-force harmonic"`
	Ensembles []EnsembleConfig `yaml:"ensembles" validate:"required,min=1,dive"`
	Input     InputConfig      `yaml:"input"`
	Target    TargetConfig     `yaml:"target"`
	PMF       PMFConfig        `yaml:"pmf"`
	Solver    SolverConfig     `yaml:"solver"`
	Threads   int              `yaml:"threads" validate:"gte=0"`
}

// EnsembleConfig is one trajectory and the bias it was recorded under.
type EnsembleConfig struct {
	Name  string  `yaml:"name"`
	Path  string  `yaml:"path" validate:"required"`
	Force float64 `yaml:"force"` // pN (constant-force)
	// Temperature in K; 0 uses the run temperature.
	Temperature float64 `yaml:"temperature" validate:"gte=0"`

	Center float64 `yaml:"center"`                  // harmonic
	Spring float64 `yaml:"spring" validate:"gte=0"` // harmonic, pN/nm
	Period float64 `yaml:"period" validate:"gte=0"` // harmonic, 0 = not periodic
}

// InputConfig controls trajectory parsing and preprocessing.
type InputConfig struct {
	Column int `yaml:"column" validate:"gte=0"`
	// EnergyColumn holds unbiased energies (pN·nm). Required when ensembles
	// run at different temperatures.
	EnergyColumn int     `yaml:"energy_column" validate:"gte=0"`
	Scale        float64 `yaml:"scale" validate:"gte=0"`
	// Decorrelate subsamples each trajectory by its statistical inefficiency.
	Decorrelate bool `yaml:"decorrelate"`
	// Equilibrate drops the initial transient before decorrelating.
	Equilibrate bool `yaml:"equilibrate"`
}

// TargetConfig is the state the PMF is reported in. Force 0 is the unbiased state.
type TargetConfig struct {
	Force float64 `yaml:"force"`
}

// PMFConfig controls the reduction.
type PMFConfig struct {
	Method    string       `yaml:"method" validate:"oneof=histogram kde spline"`
	Bins      int          `yaml:"bins" validate:"gte=1"`
	Min       *float64     `yaml:"min"`
	Max       *float64     `yaml:"max"`
	Period    float64      `yaml:"period" validate:"gte=0"`
	Reference string       `yaml:"reference" validate:"oneof=lowest none"`
	Bandwidth float64      `yaml:"bandwidth" validate:"gte=0"`
	Bootstrap int          `yaml:"bootstrap" validate:"eq=0|gte=2"`
	Seed      uint64       `yaml:"seed"`
	Spline    SplineConfig `yaml:"spline"`
}

// SplineConfig tunes the spline method.
type SplineConfig struct {
	Knots     int    `yaml:"knots" validate:"gte=2"`
	Degree    int    `yaml:"degree" validate:"gte=1,lte=5"`
	Weighting string `yaml:"weighting" validate:"oneof=kldivergence sumkldivergence weightedsum"`
	// MCMC is the number of Metropolis proposals for percentile bands; 0 skips sampling.
	MCMC       int     `yaml:"mcmc" validate:"gte=0"`
	MCMCEvery  int     `yaml:"mcmc_every" validate:"gte=1"`
	PriorScale float64 `yaml:"prior_scale" validate:"gt=0"`
}

// SolverConfig tunes MBAR.
type SolverConfig struct {
	Method        string  `yaml:"method" validate:"oneof=adaptive self-consistent"`
	Tolerance     float64 `yaml:"tolerance" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" validate:"gte=1"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		Temperature: 298.15,
		Bias:        "constant-force",
		Input:       InputConfig{Scale: 1},
		PMF: PMFConfig{
			Method:    "histogram",
			Bins:      40,
			Reference: "lowest",
			Seed:      1,
			Spline: SplineConfig{
				Knots:      20,
				Degree:     3,
				Weighting:  "kldivergence",
				MCMCEvery:  10,
				PriorScale: 500,
			},
		},
		Solver: SolverConfig{
			Method:        "adaptive",
			Tolerance:     1e-10,
			MaxIterations: 10000,
		},
	}
}

// Load reads path over Default, resolves trajectory paths relative to the
// file's directory, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range cfg.Ensembles {
		p := cfg.Ensembles[i].Path
		if p != "" && p != "-" && !filepath.IsAbs(p) {
			cfg.Ensembles[i].Path = filepath.Join(base, p)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(pmfRange, PMFConfig{})
	v.RegisterStructValidation(biasParams, Config{})
	return v
}

func pmfRange(sl validator.StructLevel) {
	p := sl.Current().Interface().(PMFConfig)
	if p.Min != nil && p.Max != nil && !(*p.Max > *p.Min) {
		sl.ReportError(p.Max, "Max", "max", "gtmin", "")
	}
	if p.Method == "spline" {
		if p.Period > 0 {
			sl.ReportError(p.Period, "Period", "period", "splineperiod", "")
		}
		if p.Spline.Knots <= p.Spline.Degree {
			sl.ReportError(p.Spline.Knots, "Spline.Knots", "knots", "gtdegree", "")
		}
	}
}

func biasParams(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.Bias == "harmonic" {
		for i, e := range c.Ensembles {
			if e.Spring <= 0 {
				sl.ReportError(e.Spring, fmt.Sprintf("Ensembles[%d].Spring", i), "spring", "harmonicspring", "")
			}
		}
	}
	if c.MixedTemperatures() {
		if c.Input.EnergyColumn == 0 {
			sl.ReportError(c.Input.EnergyColumn, "Input.EnergyColumn", "energy_column", "mixedtemp", "")
		}
		if c.PMF.Method == "spline" && c.PMF.Spline.Weighting != "kldivergence" {
			sl.ReportError(c.PMF.Spline.Weighting, "PMF.Spline.Weighting", "weighting", "mixedtempspline", "")
		}
	}
}

// EnsembleTemperature is the temperature of ensemble i.
func (c *Config) EnsembleTemperature(i int) float64 {
	if t := c.Ensembles[i].Temperature; t > 0 {
		return t
	}
	return c.Temperature
}

// MixedTemperatures reports whether any ensemble runs away from the run
// temperature.
func (c *Config) MixedTemperatures() bool {
	for i := range c.Ensembles {
		if c.EnsembleTemperature(i) != c.Temperature {
			return true
		}
	}
	return false
}

// Validate checks field constraints and returns one readable error listing
// every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gtmin":
		return "pmf max must exceed pmf min"
	case "harmonicspring":
		return field + " must be positive for harmonic bias"
	case "splineperiod":
		return "pmf method spline does not support a periodic coordinate"
	case "gtdegree":
		return "pmf spline knots must exceed the spline degree"
	case "mixedtemp":
		return "ensembles at different temperatures need input energy_column"
	case "mixedtempspline":
		return "ensembles at different temperatures need spline weighting kldivergence"
	default:
		return fmt.Sprintf("%s fails %s %s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}
