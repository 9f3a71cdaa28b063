// internal/cmdutil/exit.go
package cmdutil

import (
	"context"
	"errors"
	"io/fs"

	"forcepmf/core/mbar"
)

// Process exit codes shared by the tools.
const (
	ExitOK           = 0
	ExitUsage        = 2 // bad flags, config or input data
	ExitIO           = 3 // runtime / IO failures
	ExitNotConverged = 4 // result printed, but MBAR hit its iteration cap
	ExitCancelled    = 130
)

// InputError marks an error caused by what the user supplied (files, config,
// flags) rather than by the environment.
type InputError struct{ Err error }

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// Input wraps err as an InputError; nil stays nil.
func Input(err error) error {
	if err == nil {
		return nil
	}
	return &InputError{Err: err}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var ie *InputError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, mbar.ErrNotConverged):
		return ExitNotConverged
	case errors.Is(err, mbar.ErrInput), errors.Is(err, mbar.ErrDisconnected), errors.As(err, &ie):
		return ExitUsage
	default:
		return ExitIO
	}
}

// LoadError classifies an error from reading input files: cancellation and
// filesystem failures pass through, anything else (parse errors, short
// series) is the user's input.
func LoadError(err error) error {
	var pe *fs.PathError
	if err == nil || errors.Is(err, context.Canceled) || errors.As(err, &pe) {
		return err
	}
	return Input(err)
}
