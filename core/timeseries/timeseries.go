// core/timeseries/timeseries.go
//
// Correlation analysis for equilibrium time series: the statistical
// inefficiency g (the number of correlated frames worth one independent
// sample) and subsampling to roughly independent frames.
package timeseries

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// minTime is the lag below which a non-positive autocorrelation does not end the sum.
const minTime = 3

// ErrTooShort is returned for series with fewer than two samples.
var ErrTooShort = errors.New("timeseries: need at least two samples")

// StatisticalInefficiency estimates
//
//	g = 1 + 2 Σ_{t=1}^{N-1} (1 - t/N) C(t)
//
// truncating the sum at the first C(t) ≤ 0 past minTime. With fast set the
// lag step grows by one each term, which is much cheaper on long series at a
// small cost in accuracy. g is never below 1; a constant series gives 1.
func StatisticalInefficiency(x []float64, fast bool) (float64, error) {
	n := len(x)
	if n < 2 {
		return 0, ErrTooShort
	}
	mu, sigma2 := stat.PopMeanVariance(x, nil)
	if sigma2 == 0 || math.IsNaN(sigma2) {
		return 1, nil
	}
	nf := float64(n)
	g := 1.0
	for t, inc := 1, 1; t < n-1; {
		c := 0.0
		for i := 0; i < n-t; i++ {
			c += (x[i] - mu) * (x[i+t] - mu)
		}
		c /= float64(n-t) * sigma2
		if c <= 0 && t > minTime {
			break
		}
		g += 2 * c * (1 - float64(t)/nf) * float64(inc)
		t += inc
		if fast {
			inc++
		}
	}
	if g < 1 {
		g = 1
	}
	return g, nil
}

// Subsample returns the indices round(k·g), k = 0,1,..., that fall below n.
func Subsample(n int, g float64) []int {
	if n <= 0 {
		return nil
	}
	if g < 1 || math.IsNaN(g) {
		g = 1
	}
	m := int(float64(n) / g)
	if m < 1 {
		m = 1
	}
	out := make([]int, 0, m)
	for k := 0; k < m; k++ {
		i := int(math.Round(float64(k) * g))
		if i >= n {
			break
		}
		if len(out) > 0 && out[len(out)-1] == i {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Equilibration is the result of DetectEquilibration.
type Equilibration struct {
	Start int     // first frame of the production region
	G     float64 // statistical inefficiency of x[Start:]
	NEff  float64 // effective number of independent samples in x[Start:]
}

// DetectEquilibration picks the start frame that maximizes the effective
// sample count (n - t)/g(x[t:]), trying every stride-th frame. The last
// quarter of the series is never considered as a start.
func DetectEquilibration(x []float64, stride int) (Equilibration, error) {
	n := len(x)
	if n < 2 {
		return Equilibration{}, ErrTooShort
	}
	if stride < 1 {
		stride = 1
	}
	best := Equilibration{NEff: -1}
	for t := 0; t < n-1 && t <= 3*n/4; t += stride {
		g, err := StatisticalInefficiency(x[t:], true)
		if err != nil {
			return Equilibration{}, err
		}
		neff := float64(n-t) / g
		if neff > best.NEff {
			best = Equilibration{Start: t, G: g, NEff: neff}
		}
	}
	return best, nil
}

// Decorrelate is Subsample applied to x with its own statistical inefficiency.
func Decorrelate(x []float64, fast bool) ([]float64, float64, error) {
	g, err := StatisticalInefficiency(x, fast)
	if err != nil {
		return nil, 0, err
	}
	idx := Subsample(len(x), g)
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out, g, nil
}
