package pmf

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"forcepmf/core/mbar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestHistogram_RecoversHarmonicProfile(t *testing.T) {
	m, x, target := umbrellaData(t, 1, 1000)
	est := solved(t, m)
	bins, err := NewUniformBins(-1.2, 1.2, 12)
	require.NoError(t, err)

	prof, err := Histogram(est, x, bins, Options{Target: target})
	require.NoError(t, err)
	require.Equal(t, 12, prof.Defined())
	assert.Equal(t, mbar.StateReduced, est.State())

	ref := -1
	for b, bin := range prof.Bins {
		require.True(t, bin.Defined)
		if bin.F == 0 {
			ref = b
		}
	}
	require.GreaterOrEqual(t, ref, 0, "lowest bin must be the zero")
	assert.Equal(t, 0.0, prof.Bins[ref].DF)

	exactRef := exactBin(prof.Bins[ref].Lo, prof.Bins[ref].Hi)
	for b, bin := range prof.Bins {
		want := exactBin(bin.Lo, bin.Hi) - exactRef
		if b != ref {
			require.Greater(t, bin.DF, 0.0, "bin %d", b)
		}
		assert.LessOrEqualf(t, math.Abs(bin.F-want), 4*bin.DF+0.05,
			"bin %d at %.2f: F=%.3f want %.3f ± %.3f", b, bin.Center, bin.F, want, bin.DF)
	}
}

func TestHistogram_EmptyBinsUndefined(t *testing.T) {
	m, x, _ := umbrellaData(t, 2, 200)
	est := solved(t, m)
	bins, err := NewUniformBins(-2, 20, 11) // bins beyond x≈4 see no samples
	require.NoError(t, err)

	prof, err := Histogram(est, x, bins, Options{})
	require.NoError(t, err)
	last := prof.Bins[len(prof.Bins)-1]
	assert.False(t, last.Defined)
	assert.True(t, math.IsNaN(last.F))
	assert.True(t, math.IsNaN(last.DF))
	assert.Equal(t, 0, last.Count)
	assert.Less(t, prof.Defined(), len(prof.Bins))
	assert.True(t, prof.Bins[0].Defined)
}

func TestHistogram_ReferenceNoneIsMinusLogProbability(t *testing.T) {
	m, x, target := umbrellaData(t, 3, 300)
	est := solved(t, m)
	bins, err := NewUniformBins(-10, 10, 4)
	require.NoError(t, err)

	prof, err := Histogram(est, x, bins, Options{Reference: RefNone, Target: target})
	require.NoError(t, err)
	total := 0.0
	for _, b := range prof.Bins {
		if b.Defined {
			total += math.Exp(-b.F)
		}
	}
	// Every sample lies inside [-10, 10], so the bin probabilities sum to one.
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestHistogram_RequiresSolve(t *testing.T) {
	m, x, _ := umbrellaData(t, 4, 50)
	bins, _ := NewUniformBins(-1, 1, 4)
	_, err := Histogram(mbar.New(m, mbar.Options{}), x, bins, Options{})
	assert.True(t, errors.Is(err, mbar.ErrState))
}

func TestKDE_TracksHistogram(t *testing.T) {
	m, x, target := umbrellaData(t, 5, 800)
	est := solved(t, m)
	points := []float64{-1, -0.5, 0, 0.5, 1}

	prof, err := KDE(est, x, points, 0, Options{Target: target})
	require.NoError(t, err)
	require.Len(t, prof.Bins, len(points))

	// Exact PMF is x²/2; compare shapes relative to x = 0.
	f0 := prof.Bins[2].F
	for i, p := range points {
		assert.InDeltaf(t, 0.5*p*p, prof.Bins[i].F-f0, 0.15, "point %v", p)
	}
}

func TestKDE_PeriodicWrapsKernel(t *testing.T) {
	// Mirror-symmetric samples around 0 on [0, 6): half sit just below 6.
	r := rand.New(rand.NewPCG(5, 6))
	var x []float64
	for i := 0; i < 400; i++ {
		v := math.Abs(0.3 * r.NormFloat64())
		x = append(x, v, math.Mod(6-v, 6))
	}
	m, err := mbar.NewMatrix(mat.NewDense(len(x), 1, nil), []int{len(x)})
	require.NoError(t, err)
	est := solved(t, m)
	points := []float64{0, 0.1, 3, 5.9}

	wrapped, err := KDE(est, x, points, 0.1, Options{Reference: RefNone, Period: 6})
	require.NoError(t, err)
	assert.InDelta(t, wrapped.Bins[1].F, wrapped.Bins[3].F, 1e-9)
	assert.Greater(t, wrapped.Bins[2].F, wrapped.Bins[1].F+5)

	// Without wrapping the point on the boundary sees only half the mass.
	open, err := KDE(est, x, points, 0.1, Options{Reference: RefNone})
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, open.Bins[0].F-wrapped.Bins[0].F, 1e-9)
}

func TestBootstrap_DeterministicPerSeed(t *testing.T) {
	m, x, target := umbrellaData(t, 6, 150)
	bins, _ := NewUniformBins(-1, 1, 5)

	run := func(workers int) *BootstrapResult {
		res, err := Bootstrap(context.Background(), m, x, target, bins, BootstrapOptions{
			Replicates: 6, Seed: 42, Workers: workers,
		})
		require.NoError(t, err)
		return res
	}
	a, b := run(1), run(3)
	assert.Equal(t, a.DF, b.DF)
	assert.Equal(t, 6, a.Used)

	defined := 0
	for _, df := range a.DF {
		if !math.IsNaN(df) {
			defined++
			assert.GreaterOrEqual(t, df, 0.0)
		}
	}
	assert.Equal(t, 5, defined)

	_, err := Bootstrap(context.Background(), m, x, target, bins, BootstrapOptions{Replicates: 1})
	assert.Error(t, err)
}

func TestBootstrap_Cancelled(t *testing.T) {
	m, x, _ := umbrellaData(t, 7, 50)
	bins, _ := NewUniformBins(-1, 1, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Bootstrap(ctx, m, x, nil, bins, BootstrapOptions{Replicates: 4})
	assert.ErrorIs(t, err, context.Canceled)
}
