// internal/output/text.go
package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders v with six significant digits, NA for NaN or ±Inf.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// WriteText writes the report as tab-separated sections. Each section starts
// with a "# name" line; header rows follow unless header is false.
func WriteText(w io.Writer, r Report, header bool) error {
	bw := bufio.NewWriter(w)
	if res := r.Result; res != nil {
		status := "converged"
		if !res.Converged {
			status = "not-converged"
		}
		fmt.Fprintf(bw, "# run %s  mbar=%s  %s after %d iterations  overlap_gap=%s\n",
			r.RunID, r.Method, status, res.Iterations, FormatFloat(res.OverlapGap))
	}

	fmt.Fprintln(bw, "# offsets")
	if header {
		fmt.Fprintln(bw, OffsetHeader)
	}
	for _, o := range Offsets(r) {
		fmt.Fprintf(bw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			o.Ensemble, FormatFloat(o.Force), o.Frames, o.Samples,
			FormatFloat(o.G), FormatFloat(o.F), FormatFloat(o.DF))
	}

	if r.Covariance && r.Result != nil && r.Result.Cov != nil {
		fmt.Fprintln(bw, "# covariance")
		cov := r.Result.Cov
		k := cov.SymmetricDim()
		cells := make([]string, k)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				cells[j] = FormatFloat(cov.At(i, j))
			}
			fmt.Fprintln(bw, strings.Join(cells, "\t"))
		}
	}

	if s := r.Spline; s != nil {
		fmt.Fprintf(bw, "# spline knots=%d degree=%d weighting=%s samples=%d loglik=%s aic=%s bic=%s",
			s.Knots, s.Degree, s.Weighting, s.Samples, FormatFloat(s.LogLikelihood), FormatFloat(s.AIC), FormatFloat(s.BIC))
		if s.MCMCStates > 0 {
			fmt.Fprintf(bw, " mcmc_states=%d acceptance=%s", s.MCMCStates, FormatFloat(s.Acceptance))
		}
		fmt.Fprintln(bw)
	}

	if p := r.Profile; p != nil {
		if p.Band != nil {
			fmt.Fprintf(bw, "# pmf method=%s reference=%s band=%s\n", p.Method, p.Reference, BandName(p.Band))
		} else {
			fmt.Fprintf(bw, "# pmf method=%s reference=%s\n", p.Method, p.Reference)
		}
		if header {
			if p.Band != nil {
				fmt.Fprintln(bw, PMFBandHeader)
			} else {
				fmt.Fprintln(bw, PMFHeader)
			}
		}
		for i, b := range p.Bins {
			f, df := NA, NA
			if b.Defined {
				f, df = FormatFloat(b.F), FormatFloat(b.DF)
			}
			fmt.Fprintf(bw, "%s\t%s\t%s\t%d", FormatFloat(b.Center), f, df, b.Count)
			if p.Band != nil && i < len(p.Band.Low) {
				fmt.Fprintf(bw, "\t%s\t%s", FormatFloat(p.Band.Low[i]), FormatFloat(p.Band.High[i]))
			}
			fmt.Fprintln(bw)
		}
	}
	return bw.Flush()
}
