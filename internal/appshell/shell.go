// Package appshell is the process wrapper shared by the forcepmf binaries.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"forcepmf/internal/cmdutil"
)

// RunFunc is an app entry point.
type RunFunc func(ctx context.Context, argv []string, stdout, stderr io.Writer) int

// Exec runs fn under a context cancelled by SIGINT/SIGTERM and returns the
// exit code. A cancelled run never reports success.
func Exec(fn RunFunc, argv []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(argv) == 0 {
		argv = []string{"-h"}
	}
	code := fn(ctx, argv, stdout, stderr)
	if ctx.Err() != nil && code == cmdutil.ExitOK {
		code = cmdutil.ExitCancelled
	}
	return code
}

func Main(fn RunFunc) {
	os.Exit(Exec(fn, os.Args[1:], os.Stdout, os.Stderr))
}
