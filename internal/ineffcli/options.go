package ineffcli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"forcepmf/internal/clibase"
	"forcepmf/internal/cliutil"
)

// Options is the parsed forcepmf-ineff command line.
type Options struct {
	clibase.Common

	Files       []string
	Column      int
	Scale       float64
	Equilibrate bool
}

func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	clibase.UsageCommon(fs, name, "statistical inefficiency and effective sample size per trace", func(out io.Writer, def func(string) string) {
		_, _ = fmt.Fprintln(out, "Usage:")
		_, _ = fmt.Fprintf(out, "  %s [options] trace.tsv[.gz] ...\n", name)

		_, _ = fmt.Fprintln(out, "\nInput:")
		_, _ = fmt.Fprintf(out, "      --column int           1-based extension column (0=auto) [%s]\n", def("column"))
		_, _ = fmt.Fprintf(out, "      --scale float          Multiply values by this factor [%s]\n", def("scale"))
		_, _ = fmt.Fprintln(out, "      --equilibrate          Detect and drop the initial transient")
	})
	return fs
}

func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var o Options
	var help bool

	noHeader := clibase.Register(fs, &o.Common)
	fs.IntVar(&o.Column, "column", 0, "1-based column (0=auto)")
	fs.Float64Var(&o.Scale, "scale", 1, "value scale factor")
	fs.BoolVar(&o.Equilibrate, "equilibrate", false, "drop initial transient")
	fs.BoolVar(&help, "h", false, "show this help [false]")

	flagArgs, posArgs := cliutil.SplitFlagsAndPositionals(fs, argv)
	if err := fs.Parse(flagArgs); err != nil {
		return o, err
	}
	if help {
		return o, flag.ErrHelp
	}
	o.Common.Header = !*noHeader
	if o.Version {
		return o, nil
	}
	if err := clibase.Validate(&o.Common, "text", "json"); err != nil {
		return o, err
	}
	if o.Column < 0 {
		return o, errors.New("--column must be ≥ 0")
	}
	files, err := cliutil.ExpandPositionals(posArgs)
	if err != nil {
		return o, err
	}
	if len(files) == 0 {
		return o, errors.New("at least one trace file is required")
	}
	o.Files = files
	return o, nil
}
