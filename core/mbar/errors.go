// core/mbar/errors.go
package mbar

import (
	"errors"
	"fmt"
)

// Sentinels. Typed errors below unwrap to one of these so callers can use errors.Is.
var (
	ErrInput        = errors.New("mbar: invalid input")
	ErrDisconnected = errors.New("mbar: ensembles are not connected")
	ErrState        = errors.New("mbar: invalid estimator state")
	ErrNotConverged = errors.New("mbar: did not converge")
)

// InputError reports malformed input detected before iteration begins.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("mbar: invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInput }

func inputErrorf(field, format string, a ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

// ConfigurationError is returned when the ensembles split into groups that
// share no sample overlap. Offsets between such groups are undetermined.
type ConfigurationError struct {
	Components [][]int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("mbar: ensembles split into %d disconnected groups %v; offsets between groups are undetermined",
		len(e.Components), e.Components)
}

func (e *ConfigurationError) Unwrap() error { return ErrDisconnected }

// ConvergenceWarning accompanies a usable but unconverged Result.
// MaxDelta and GradNorm describe the returned iterate.
type ConvergenceWarning struct {
	Iterations int
	MaxDelta   float64
	GradNorm   float64
	Tolerance  float64
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("mbar: not converged after %d iterations (max |Δf| = %.3g, |∇| = %.3g, tolerance %.3g)",
		w.Iterations, w.MaxDelta, w.GradNorm, w.Tolerance)
}

func (w *ConvergenceWarning) Unwrap() error { return ErrNotConverged }
