package output

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"forcepmf/core/mbar"
	"forcepmf/core/pmf"

	"gonum.org/v1/gonum/mat"
)

func sampleReport() Report {
	return Report{
		RunID:       "run-1",
		Tool:        "forcepmf",
		Version:     "test",
		Temperature: 298.15,
		Method:      "adaptive",
		Ensembles: []EnsembleInfo{
			{Name: "f12.1", Force: 12.1, Frames: 100, Samples: 40, G: 2.5},
			{Name: "f12.4", Force: 12.4, Frames: 120, Samples: 60, G: 2},
		},
		Result: &mbar.Result{
			F:          []float64{0, 1.25},
			DF:         []float64{0, 0.05},
			Cov:        mat.NewSymDense(2, []float64{0, 0, 0, 0.0025}),
			OverlapGap: math.NaN(),
			Iterations: 7,
			Converged:  true,
		},
		Profile: &pmf.Profile{
			Method: "histogram",
			Bins: []pmf.Bin{
				{Center: 500, Lo: 495, Hi: 505, F: 0, DF: 0, Count: 30, Defined: true},
				{Center: 510, Lo: 505, Hi: 515, F: math.NaN(), DF: math.NaN()},
			},
		},
		Covariance: true,
	}
}

func TestWriteText_Sections(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport(), true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"# offsets\n" + OffsetHeader + "\n",
		"f12.4\t12.4\t120\t60\t2\t1.25\t0.05\n",
		"# covariance\n0\t0\n0\t0.0025\n",
		"# pmf method=histogram reference=lowest\n" + PMFHeader + "\n",
		"510\tNA\tNA\t0\n",
		"overlap_gap=NA",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	_ = WriteText(&buf, sampleReport(), false)
	if strings.Contains(buf.String(), OffsetHeader) {
		t.Fatalf("header printed with header=false")
	}
}

func TestWriteJSON_UndefinedBinsAreNull(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	bins := v["pmf"].([]any)
	last := bins[1].(map[string]any)
	if last["f_kt"] != nil || last["df_kt"] != nil {
		t.Fatalf("undefined bin must carry nulls: %v", last)
	}
	if _, ok := v["overlap_gap"]; ok {
		t.Fatalf("NaN overlap gap must be omitted")
	}
	if v["pmf_uncertainty"] != "analytical" || v["run_id"] != "run-1" {
		t.Fatalf("unexpected metadata: %v", v)
	}
	if len(v["covariance"].([]any)) != 2 {
		t.Fatalf("covariance missing")
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{0: "0", 1.5: "1.5", 1234567: "1.23457e+06", math.Inf(1): NA}
	for in, want := range cases {
		if got := FormatFloat(in); got != want {
			t.Errorf("FormatFloat(%v)=%q want %q", in, got, want)
		}
	}
}

func TestSplineBandOutput(t *testing.T) {
	r := sampleReport()
	r.Profile.Method = "spline"
	r.Profile.Band = &pmf.Band{Lo: 2.5, Hi: 97.5, Low: []float64{0, math.NaN()}, High: []float64{0.4, math.NaN()}}
	r.Spline = &SplineInfo{Knots: 20, Degree: 3, Weighting: "kldivergence", Samples: 100, LogLikelihood: -50, AIC: 138, BIC: 187.5, MCMCStates: 300, Acceptance: 0.4}

	var buf bytes.Buffer
	if err := WriteText(&buf, r, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"# spline knots=20 degree=3 weighting=kldivergence samples=100 loglik=-50 aic=138 bic=187.5 mcmc_states=300 acceptance=0.4\n",
		"# pmf method=spline reference=lowest band=2.5-97.5\n" + PMFBandHeader + "\n",
		"500\t0\t0\t30\t0\t0.4\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v["pmf_uncertainty"] != "mcmc" || v["pmf_band"] != "2.5-97.5" {
		t.Fatalf("unexpected metadata: %v", v)
	}
	spline := v["spline"].(map[string]any)
	if spline["bic"] != 187.5 || spline["knots"] != 20.0 {
		t.Fatalf("spline block: %v", spline)
	}
	first := v["pmf"].([]any)[0].(map[string]any)
	if first["f_high_kt"] != 0.4 {
		t.Fatalf("band missing from bin: %v", first)
	}
}
