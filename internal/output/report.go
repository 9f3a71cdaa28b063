// internal/output/report.go
package output

import (
	"math"
	"strconv"

	"forcepmf/core/mbar"
	"forcepmf/core/pmf"
	"forcepmf/pkg/api"
)

// EnsembleInfo describes one loaded ensemble for reporting.
type EnsembleInfo struct {
	Name    string
	Force   float64
	Source  string
	Frames  int
	Samples int
	G       float64
}

// SplineInfo summarizes a spline PMF fit.
type SplineInfo struct {
	Knots         int
	Degree        int
	Weighting     string
	Samples       int
	LogLikelihood float64
	AIC, BIC      float64
	MCMCStates    int // kept posterior states, 0 without sampling
	Acceptance    float64
}

// Report gathers everything one run prints.
type Report struct {
	RunID       string
	Tool        string
	Version     string
	Temperature float64
	Method      string
	Ensembles   []EnsembleInfo
	Result      *mbar.Result
	Profile     *pmf.Profile // nil when no PMF was requested
	Bootstrap   bool         // Profile DF came from bootstrap replicates
	Covariance  bool         // include the covariance matrix
	Spline      *SplineInfo  // set for spline profiles
}

// ToAPI converts the report to the stable wire schema (v1).
func ToAPI(r Report) api.ReportV1 {
	v := api.ReportV1{
		RunID:       r.RunID,
		Tool:        r.Tool,
		Version:     r.Version,
		Temperature: r.Temperature,
		Method:      r.Method,
		Offsets:     Offsets(r),
	}
	if res := r.Result; res != nil {
		v.Converged = res.Converged
		v.Iterations = res.Iterations
		v.OverlapGap = finite(res.OverlapGap)
		if r.Covariance && res.Cov != nil {
			k := res.Cov.SymmetricDim()
			v.Covariance = make([][]float64, k)
			for i := range v.Covariance {
				v.Covariance[i] = make([]float64, k)
				for j := range v.Covariance[i] {
					v.Covariance[i][j] = res.Cov.At(i, j)
				}
			}
		}
	}
	if p := r.Profile; p != nil {
		v.PMFMethod = p.Method
		v.Reference = p.Reference.String()
		v.Uncertainty = "analytical"
		switch {
		case r.Bootstrap:
			v.Uncertainty = "bootstrap"
		case p.Band != nil:
			v.Uncertainty = "mcmc"
			v.Band = BandName(p.Band)
		}
		v.PMF = Bins(p)
	}
	if s := r.Spline; s != nil {
		v.Spline = &api.SplineV1{
			Knots:         s.Knots,
			Degree:        s.Degree,
			Weighting:     s.Weighting,
			Samples:       s.Samples,
			LogLikelihood: s.LogLikelihood,
			AIC:           s.AIC,
			BIC:           s.BIC,
			MCMCStates:    s.MCMCStates,
			Acceptance:    s.Acceptance,
		}
	}
	return v
}

// BandName renders a band's percentiles as "lo-hi".
func BandName(b *pmf.Band) string {
	return strconv.FormatFloat(b.Lo, 'g', -1, 64) + "-" + strconv.FormatFloat(b.Hi, 'g', -1, 64)
}

// Offsets returns one wire record per ensemble.
func Offsets(r Report) []api.OffsetV1 {
	out := make([]api.OffsetV1, 0, len(r.Ensembles))
	for i, e := range r.Ensembles {
		o := api.OffsetV1{
			Ensemble: e.Name,
			Force:    e.Force,
			Source:   e.Source,
			Frames:   e.Frames,
			Samples:  e.Samples,
			G:        e.G,
		}
		if r.Result != nil && i < len(r.Result.F) {
			o.F, o.DF = r.Result.F[i], r.Result.DF[i]
		}
		out = append(out, o)
	}
	return out
}

// Bins returns one wire record per profile bin.
func Bins(p *pmf.Profile) []api.PMFBinV1 {
	out := make([]api.PMFBinV1, 0, len(p.Bins))
	for i, b := range p.Bins {
		w := api.PMFBinV1{Center: b.Center, Lo: b.Lo, Hi: b.Hi, Count: b.Count}
		if b.Defined {
			w.F = finite(b.F)
			w.DF = finite(b.DF)
		}
		if p.Band != nil && i < len(p.Band.Low) {
			w.Low = finite(p.Band.Low[i])
			w.High = finite(p.Band.High[i])
		}
		out = append(out, w)
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
