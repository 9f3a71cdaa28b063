// pkg/api/report_v1.go
package api

// OffsetV1 is one ensemble's solved free-energy offset (kT, relative to the
// first ensemble). Keep fields, names, and types stable. Add new fields only
// with ",omitempty".
type OffsetV1 struct {
	Ensemble string  `json:"ensemble"`
	Force    float64 `json:"force_pn"`
	Source   string  `json:"source_file,omitempty"`
	Frames   int     `json:"frames"`
	Samples  int     `json:"samples"`
	G        float64 `json:"statistical_inefficiency"`
	F        float64 `json:"f_kt"`
	DF       float64 `json:"df_kt"`
}

// PMFBinV1 is one point of the PMF. F and DF are null for bins without
// samples. Low and High bound the percentile band named by ReportV1.Band.
type PMFBinV1 struct {
	Center float64  `json:"center"`
	Lo     float64  `json:"lo"`
	Hi     float64  `json:"hi"`
	Count  int      `json:"count"`
	F      *float64 `json:"f_kt"`
	DF     *float64 `json:"df_kt"`
	Low    *float64 `json:"f_low_kt,omitempty"`
	High   *float64 `json:"f_high_kt,omitempty"`
}

// SplineV1 describes a spline PMF fit.
type SplineV1 struct {
	Knots         int     `json:"knots"`
	Degree        int     `json:"degree"`
	Weighting     string  `json:"weighting"`
	Samples       int     `json:"samples"`
	LogLikelihood float64 `json:"log_likelihood"`
	AIC           float64 `json:"aic"`
	BIC           float64 `json:"bic"`
	MCMCStates    int     `json:"mcmc_states,omitempty"`
	Acceptance    float64 `json:"mcmc_acceptance,omitempty"`
}

// ReportV1 is the complete result of one forcepmf run (JSON output).
type ReportV1 struct {
	RunID       string      `json:"run_id"`
	Tool        string      `json:"tool"`
	Version     string      `json:"version"`
	Temperature float64     `json:"temperature_k"`
	Method      string      `json:"mbar_method"`
	Converged   bool        `json:"converged"`
	Iterations  int         `json:"iterations"`
	OverlapGap  *float64    `json:"overlap_gap,omitempty"`
	Offsets     []OffsetV1  `json:"offsets"`
	Covariance  [][]float64 `json:"covariance,omitempty"`
	PMFMethod   string      `json:"pmf_method,omitempty"`
	Reference   string      `json:"pmf_reference,omitempty"`
	Uncertainty string      `json:"pmf_uncertainty,omitempty"` // "analytical" | "bootstrap" | "mcmc"
	Band        string      `json:"pmf_band,omitempty"`        // e.g. "2.5-97.5"
	Spline      *SplineV1   `json:"spline,omitempty"`
	PMF         []PMFBinV1  `json:"pmf,omitempty"`
}

// LineV1 is one JSONL record. Exactly one of Offset and Bin is set,
// matching Kind ("offset" or "pmf").
type LineV1 struct {
	RunID  string    `json:"run_id"`
	Kind   string    `json:"kind"`
	Offset *OffsetV1 `json:"offset,omitempty"`
	Bin    *PMFBinV1 `json:"bin,omitempty"`
}

// InefficiencyV1 is one row of forcepmf-ineff output.
type InefficiencyV1 struct {
	Source string  `json:"source_file"`
	Frames int     `json:"frames"`
	Start  int     `json:"equilibration_start"`
	G      float64 `json:"statistical_inefficiency"`
	NEff   float64 `json:"effective_samples"`
}
