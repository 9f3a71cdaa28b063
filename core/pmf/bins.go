// core/pmf/bins.go
package pmf

import (
	"fmt"
	"math"
	"sort"
)

// Bins partitions the reaction coordinate into contiguous intervals
// [edge[i], edge[i+1]). The last bin also takes its upper edge. Periodic bins
// cover exactly one period and wrap every x into it first.
type Bins struct {
	edges  []float64
	period float64
}

// NewUniformBins returns n equal-width bins spanning [lo, hi].
func NewUniformBins(lo, hi float64, n int) (*Bins, error) {
	if n < 1 {
		return nil, fmt.Errorf("pmf: need at least one bin, got %d", n)
	}
	if !(hi > lo) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, fmt.Errorf("pmf: bad bin range [%v, %v]", lo, hi)
	}
	edges := make([]float64, n+1)
	w := (hi - lo) / float64(n)
	for i := range edges {
		edges[i] = lo + float64(i)*w
	}
	edges[n] = hi
	return &Bins{edges: edges}, nil
}

// NewPeriodicBins returns n equal-width bins covering [lo, lo+period).
func NewPeriodicBins(lo, period float64, n int) (*Bins, error) {
	if !(period > 0) {
		return nil, fmt.Errorf("pmf: period must be positive, got %v", period)
	}
	b, err := NewUniformBins(lo, lo+period, n)
	if err != nil {
		return nil, err
	}
	b.period = period
	return b, nil
}

// NewBins uses explicit, strictly increasing edges.
func NewBins(edges []float64) (*Bins, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("pmf: need at least two edges")
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("pmf: edges not strictly increasing at %d (%v after %v)", i, edges[i], edges[i-1])
		}
	}
	return &Bins{edges: append([]float64(nil), edges...)}, nil
}

// Len is the number of bins.
func (b *Bins) Len() int { return len(b.edges) - 1 }

// Bounds returns bin i's edges.
func (b *Bins) Bounds(i int) (lo, hi float64) { return b.edges[i], b.edges[i+1] }

// Center returns the midpoint of bin i.
func (b *Bins) Center(i int) float64 { return 0.5 * (b.edges[i] + b.edges[i+1]) }

// Periodic reports the period, or 0.
func (b *Bins) Periodic() float64 { return b.period }

// Assign returns the bin holding x, or -1 when x is outside the range or NaN.
func (b *Bins) Assign(x float64) int {
	lo, hi := b.edges[0], b.edges[len(b.edges)-1]
	if b.period > 0 {
		x = lo + math.Mod(x-lo, b.period)
		if x < lo {
			x += b.period
		}
		if x >= hi {
			x = lo
		}
	}
	if math.IsNaN(x) || x < lo || x > hi {
		return -1
	}
	if x == hi {
		return b.Len() - 1
	}
	// First edge strictly greater than x, minus one.
	return sort.Search(len(b.edges), func(i int) bool { return b.edges[i] > x }) - 1
}
