package mbar

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	threeCenters = []float64{0, 0.5, 1.0, 1.5}
	threeSprings = []float64{1, 2, 4, 2}
)

func TestSolve_RecoversHarmonicFreeEnergies(t *testing.T) {
	m, exact := harmonic(t, 7, threeCenters, threeSprings, 1000)

	est := New(m, Options{})
	res, err := est.Solve(context.Background())
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, StateConverged, est.State())

	assert.Equal(t, 0.0, res.F[0])
	assert.Equal(t, 0.0, res.DF[0])
	for i := 1; i < len(exact); i++ {
		require.Greater(t, res.DF[i], 0.0, "state %d", i)
		dev := math.Abs(res.F[i] - exact[i])
		assert.LessOrEqualf(t, dev, 4*res.DF[i],
			"state %d: f=%.4f exact=%.4f (%.1fσ)", i, res.F[i], exact[i], dev/res.DF[i])
	}
}

func TestSolve_GaugeInvariance(t *testing.T) {
	m, _ := harmonic(t, 11, threeCenters, threeSprings, 300)

	base, err := New(m, Options{}).Solve(context.Background())
	require.NoError(t, err)

	// Start from the solution shifted by a constant: re-fixing f[0]=0 must
	// land on the same vector.
	shifted := make([]float64, len(base.F))
	for i, f := range base.F {
		shifted[i] = f + 3.7
	}
	again, err := New(m, Options{Initial: shifted}).Solve(context.Background())
	require.NoError(t, err)
	assert.InDeltaSlice(t, base.F, again.F, 1e-8)

	// Starting far off converges to the same answer too.
	far := []float64{5, -2, 9, 1}
	fromFar, err := New(m, Options{Initial: far}).Solve(context.Background())
	require.NoError(t, err)
	assert.InDeltaSlice(t, base.F, fromFar.F, 1e-8)
}

func TestSolve_ColumnShiftMovesOffset(t *testing.T) {
	m, _ := harmonic(t, 13, threeCenters, threeSprings, 300)
	base, err := New(m, Options{}).Solve(context.Background())
	require.NoError(t, err)

	n, k := m.Dims()
	u := mat.NewDense(n, k, nil)
	for r := 0; r < n; r++ {
		for c := 0; c < k; c++ {
			u.Set(r, c, m.At(r, c))
		}
		u.Set(r, 2, m.At(r, 2)+1.25)
	}
	m2, err := NewMatrix(u, m.Counts())
	require.NoError(t, err)
	res, err := New(m2, Options{}).Solve(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, base.F[2]+1.25, res.F[2], 1e-8)
	assert.InDelta(t, base.F[1], res.F[1], 1e-8)
	assert.InDelta(t, base.F[3], res.F[3], 1e-8)
}

func TestSolve_SelfConsistentAgreesWithAdaptive(t *testing.T) {
	m, _ := harmonic(t, 17, threeCenters, threeSprings, 200)
	a, err := New(m, Options{Method: MethodAdaptive}).Solve(context.Background())
	require.NoError(t, err)
	s, err := New(m, Options{Method: MethodSelfConsistent, MaxIterations: 100000}).Solve(context.Background())
	require.NoError(t, err)
	assert.InDeltaSlice(t, a.F, s.F, 1e-7)
	assert.LessOrEqual(t, a.Iterations, s.Iterations)
}

func TestSolve_DeterministicAndParallelMatchesSerial(t *testing.T) {
	m, _ := harmonic(t, 19, threeCenters, threeSprings, 250)

	run := func(workers int) *Result {
		res, err := New(m, Options{Workers: workers}).Solve(context.Background())
		require.NoError(t, err)
		return res
	}
	first := run(1)
	second := run(1)
	parallel := run(3)

	assert.Equal(t, first.F, second.F, "identical input must give identical output")
	assert.InDeltaSlice(t, first.F, parallel.F, 1e-12)
	assert.Equal(t, first.Iterations, parallel.Iterations)
}

func TestSolve_Disconnected(t *testing.T) {
	// Two pairs of narrow umbrellas, 50 length units apart.
	m, _ := harmonic(t, 23, []float64{0, 0.2, 50, 50.2}, []float64{10, 10, 10, 10}, 200)

	est := New(m, Options{})
	res, err := est.Solve(context.Background())
	require.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisconnected))

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, cfgErr.Components)
}

func TestSolve_NotConvergedReturnsBestEstimate(t *testing.T) {
	m, _ := harmonic(t, 29, threeCenters, threeSprings, 200)

	est := New(m, Options{Method: MethodSelfConsistent, MaxIterations: 2, Tolerance: 1e-14})
	res, err := est.Solve(context.Background())
	require.NotNil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConverged))

	var warn *ConvergenceWarning
	require.True(t, errors.As(err, &warn))
	assert.Equal(t, 2, warn.Iterations)
	assert.False(t, res.Converged)
	assert.Equal(t, StateNotConverged, est.State())
	for _, f := range res.F {
		assert.False(t, math.IsNaN(f))
	}

	// A non-converged estimate can still be reduced.
	_, err = est.Reweight(nil)
	require.NoError(t, err)
	assert.Equal(t, StateReduced, est.State())
}

func TestSolve_NotConvergedDescribesReturnedIterate(t *testing.T) {
	m, _ := harmonic(t, 29, threeCenters, threeSprings, 200)

	est := New(m, Options{Method: MethodAdaptive, MaxIterations: 3, Tolerance: 1e-14})
	res, err := est.Solve(context.Background())
	require.NotNil(t, res)
	var warn *ConvergenceWarning
	require.True(t, errors.As(err, &warn))

	assert.Equal(t, res.MaxDelta, warn.MaxDelta)
	assert.Equal(t, res.GradNorm, warn.GradNorm)
	assert.False(t, math.IsInf(res.MaxDelta, 0))

	g, err := newWorkspace(m, 1).evaluate(res.F)
	require.NoError(t, err)
	assert.InDelta(t, g, res.GradNorm, 1e-9*(1+g))
}

func TestEstimator_StateMachine(t *testing.T) {
	t.Run("uninitialized", func(t *testing.T) {
		est := New(nil, Options{})
		assert.Equal(t, StateUninitialized, est.State())
		_, err := est.Solve(context.Background())
		assert.True(t, errors.Is(err, ErrState))
	})
	t.Run("reweight before solve", func(t *testing.T) {
		m, _ := harmonic(t, 31, threeCenters[:2], threeSprings[:2], 50)
		est := New(m, Options{})
		_, err := est.Reweight(nil)
		assert.True(t, errors.Is(err, ErrState))
		_, err = est.Weights()
		assert.True(t, errors.Is(err, ErrState))
	})
	t.Run("single use", func(t *testing.T) {
		m, _ := harmonic(t, 37, threeCenters[:2], threeSprings[:2], 50)
		est := New(m, Options{})
		_, err := est.Solve(context.Background())
		require.NoError(t, err)
		_, err = est.Solve(context.Background())
		assert.True(t, errors.Is(err, ErrState))

		_, err = est.Reweight(nil)
		require.NoError(t, err)
		_, err = est.Reweight(nil)
		require.NoError(t, err, "repeated reductions are allowed")
		_, err = est.Solve(context.Background())
		assert.True(t, errors.Is(err, ErrState))
	})
}

func TestSolve_Cancelled(t *testing.T) {
	m, _ := harmonic(t, 41, threeCenters, threeSprings, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(m, Options{}).Solve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolve_SingleEnsemble(t *testing.T) {
	u := mat.NewDense(3, 1, []float64{0.1, 0.4, 2})
	m, err := NewMatrix(u, []int{3})
	require.NoError(t, err)
	res, err := New(m, Options{}).Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, res.F)
	assert.Equal(t, []float64{0}, res.DF)
}

func TestWeights_ColumnsNormalizedAndOverlapRowsSumToOne(t *testing.T) {
	m, _ := harmonic(t, 43, threeCenters, threeSprings, 200)
	est := New(m, Options{})
	res, err := est.Solve(context.Background())
	require.NoError(t, err)

	w, err := est.Weights()
	require.NoError(t, err)
	n, k := w.Dims()
	for i := 0; i < k; i++ {
		assert.InDelta(t, 1.0, mat.Sum(w.Slice(0, n, i, i+1)), 1e-8, "column %d", i)
	}
	for i := 0; i < k; i++ {
		assert.InDelta(t, 1.0, mat.Sum(res.Overlap.Slice(i, i+1, 0, k)), 1e-8, "overlap row %d", i)
	}
	assert.Greater(t, res.OverlapGap, 0.0)
	assert.Less(t, res.OverlapGap, 1.0)
}

func TestResult_DeltaMatrices(t *testing.T) {
	m, _ := harmonic(t, 47, threeCenters, threeSprings, 200)
	res, err := New(m, Options{}).Solve(context.Background())
	require.NoError(t, err)

	d := res.DeltaF()
	dd := res.DeltaDF()
	k := len(res.F)
	for i := 0; i < k; i++ {
		assert.Equal(t, 0.0, d.At(i, i))
		assert.InDelta(t, 0.0, dd.At(i, i), 1e-12)
		assert.InDelta(t, res.DF[i], dd.At(0, i), 1e-10)
		for j := 0; j < k; j++ {
			assert.InDelta(t, -d.At(i, j), d.At(j, i), 1e-12)
			assert.InDelta(t, dd.At(i, j), dd.At(j, i), 1e-12)
		}
	}
}
