package ineffapp

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"

	"forcepmf/internal/cmdutil"
	"forcepmf/internal/ineffcli"
	"forcepmf/internal/logging"
	"forcepmf/internal/output"
	"forcepmf/internal/pipeline"
	"forcepmf/internal/trajectory"
	"forcepmf/internal/version"
	"forcepmf/internal/writers"
	"forcepmf/pkg/api"
)

const tool = "forcepmf-ineff"

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := ineffcli.NewFlagSet(tool)
	fs.SetOutput(io.Discard)
	if len(argv) == 0 {
		argv = []string{"-h"}
	}

	opts, err := ineffcli.ParseArgs(fs, argv)
	if err != nil {
		fs.SetOutput(outw)
		code := cmdutil.ExitOK
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stderr, err)
			code = cmdutil.ExitUsage
		}
		fs.Usage()
		if e := outw.Flush(); e != nil && !writers.IsBrokenPipe(e) {
			_, _ = fmt.Fprintln(stderr, e)
			return cmdutil.ExitIO
		}
		return code
	}
	if opts.Version {
		_, _ = fmt.Fprintf(outw, "%s version %s\n", tool, version.Version)
		return cmdutil.ExitOK
	}

	lc := opts.LogConfig(tool)
	lc.Output = stderr
	log := logging.New(lc)

	threads := opts.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	src := pipeline.FileSource{Options: trajectory.Options{Column: opts.Column, Scale: opts.Scale}}
	loaded, err := pipeline.LoadEnsembles(parent, pipeline.Config{
		Threads:     threads,
		Decorrelate: true,
		Equilibrate: opts.Equilibrate,
		Logger:      log,
	}, src, opts.Files)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return cmdutil.ExitCode(cmdutil.LoadError(err))
	}

	rows := make([]api.InefficiencyV1, len(loaded))
	for i, l := range loaded {
		rows[i] = api.InefficiencyV1{
			Source: l.Path,
			Frames: l.Raw,
			Start:  l.Start,
			G:      l.G,
			NEff:   float64(l.Raw-l.Start) / l.G,
		}
	}

	if opts.Output == output.FormatJSON {
		err = output.WriteInefficiencyJSON(outw, rows)
	} else {
		err = output.WriteInefficiencyText(outw, rows, opts.Header)
	}
	if err == nil {
		err = outw.Flush()
	}
	if err != nil && !writers.IsBrokenPipe(err) {
		_, _ = fmt.Fprintln(stderr, err)
		return cmdutil.ExitIO
	}
	return cmdutil.ExitOK
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
