package mbar

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBAR_InputValidation(t *testing.T) {
	_, err := BAR(nil, []float64{1})
	assert.True(t, errors.Is(err, ErrInput))
	_, err = BAR([]float64{1}, nil)
	assert.True(t, errors.Is(err, ErrInput))
	_, err = BAR([]float64{math.NaN()}, []float64{1})
	assert.True(t, errors.Is(err, ErrInput))
}

func TestBAR_IdenticalStates(t *testing.T) {
	// Zero work in both directions: Δf is exactly zero.
	res, err := BAR(make([]float64, 50), make([]float64, 80))
	require.NoError(t, err)
	assert.InDelta(t, 0, res.DeltaF, 1e-10)
}

// With two ensembles the MBAR equations collapse to the Bennett equation.
func TestSolve_TwoStatesMatchesBAR(t *testing.T) {
	m, exact := harmonic(t, 53, []float64{0, 0.7}, []float64{1, 3}, 800)

	res, err := New(m, Options{}).Solve(context.Background())
	require.NoError(t, err)

	var wF, wR []float64
	lo, hi := m.Rows(0)
	for n := lo; n < hi; n++ {
		wF = append(wF, m.At(n, 1)-m.At(n, 0))
	}
	lo, hi = m.Rows(1)
	for n := lo; n < hi; n++ {
		wR = append(wR, m.At(n, 0)-m.At(n, 1))
	}
	bar, err := BAR(wF, wR)
	require.NoError(t, err)

	assert.InDelta(t, bar.DeltaF, res.F[1], 1e-8)
	assert.InDelta(t, bar.DDeltaF, res.DF[1], 0.25*bar.DDeltaF)
	assert.LessOrEqual(t, math.Abs(bar.DeltaF-exact[1]), 4*bar.DDeltaF)
}

func TestBAR_UnequalSampleSizes(t *testing.T) {
	m, exact := harmonic(t, 59, []float64{0, 0.3}, []float64{2, 2}, 600)
	// Keep only the first 150 samples from state 1.
	var rows []int
	lo, hi := m.Rows(0)
	for n := lo; n < hi; n++ {
		rows = append(rows, n)
	}
	lo, _ = m.Rows(1)
	for n := lo; n < lo+150; n++ {
		rows = append(rows, n)
	}
	sub, err := m.Subset(rows)
	require.NoError(t, err)
	assert.Equal(t, []int{600, 150}, sub.Counts())

	res, err := New(sub, Options{}).Solve(context.Background())
	require.NoError(t, err)

	var wF, wR []float64
	lo, hi = sub.Rows(0)
	for n := lo; n < hi; n++ {
		wF = append(wF, sub.At(n, 1)-sub.At(n, 0))
	}
	lo, hi = sub.Rows(1)
	for n := lo; n < hi; n++ {
		wR = append(wR, sub.At(n, 0)-sub.At(n, 1))
	}
	bar, err := BAR(wF, wR)
	require.NoError(t, err)
	assert.InDelta(t, bar.DeltaF, res.F[1], 1e-8)
	assert.LessOrEqual(t, math.Abs(res.F[1]-exact[1]), 4*res.DF[1]+1e-9)
}
