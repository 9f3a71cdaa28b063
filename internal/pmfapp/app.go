package pmfapp

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/google/uuid"

	"forcepmf/internal/appcore"
	"forcepmf/internal/cmdutil"
	"forcepmf/internal/logging"
	"forcepmf/internal/output"
	"forcepmf/internal/plotting"
	"forcepmf/internal/pmfcli"
	"forcepmf/internal/version"
	"forcepmf/internal/writers"
)

const tool = "forcepmf"

// flush reports the exit code for a final flush of outw.
func flush(outw *bufio.Writer, stderr io.Writer, code int) int {
	if err := outw.Flush(); writers.IsBrokenPipe(err) {
		return code
	} else if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return cmdutil.ExitIO
	}
	return code
}

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := pmfcli.NewFlagSet(tool)
	fs.SetOutput(io.Discard)

	if len(argv) == 0 {
		argv = []string{"-h"}
	}
	opts, err := pmfcli.ParseArgs(fs, argv)
	if err != nil {
		fs.SetOutput(outw)
		if errors.Is(err, flag.ErrHelp) {
			fs.Usage()
			return flush(outw, stderr, cmdutil.ExitOK)
		}
		_, _ = fmt.Fprintln(stderr, err)
		fs.Usage()
		return flush(outw, stderr, cmdutil.ExitUsage)
	}

	if opts.Version {
		_, _ = fmt.Fprintf(outw, "%s version %s\n", tool, version.Version)
		return flush(outw, stderr, cmdutil.ExitOK)
	}

	lc := opts.LogConfig(tool)
	lc.Output = stderr
	log := logging.New(lc)

	cfg, err := opts.Config()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return cmdutil.ExitCode(cmdutil.LoadError(err))
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log = log.With("run_id", runID)

	a, err := appcore.Analyze(parent, cfg, nil, log)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return cmdutil.ExitCode(err)
	}

	rep := output.Report{
		RunID:       runID,
		Tool:        tool,
		Version:     version.Version,
		Temperature: cfg.Temperature,
		Method:      cfg.Solver.Method,
		Ensembles:   a.Ensembles,
		Result:      a.Result,
		Profile:     a.Profile,
		Bootstrap:   a.Bootstrap,
		Covariance:  opts.Covariance,
		Spline:      a.Spline,
	}
	if err := writers.WriteReport(opts.Output, outw, rep, opts.Header); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return cmdutil.ExitIO
	}

	if opts.Plot != "" {
		err := plotting.SavePNG(opts.Plot, a.Profile, plotting.Options{
			Title:  fmt.Sprintf("PMF at %.4g pN", cfg.Target.Force),
			XLabel: "extension (nm)",
			YLabel: "free energy (kT)",
		})
		if err != nil {
			_, _ = fmt.Fprintln(stderr, "error: plot:", err)
			return flush(outw, stderr, cmdutil.ExitIO)
		}
		log.Info("plot written", "path", opts.Plot)
	}

	code := cmdutil.ExitOK
	if a.Warning != nil {
		code = cmdutil.ExitCode(a.Warning)
	}
	if parent.Err() != nil {
		code = cmdutil.ExitCancelled
	}
	return flush(outw, stderr, code)
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
