// internal/clibase/common.go
package clibase

import (
	"errors"
	"flag"
	"fmt"

	"forcepmf/internal/logging"
)

// Common holds CLI fields shared by forcepmf and forcepmf-ineff.
type Common struct {
	// Output
	Output string // text|json|jsonl
	Header bool

	// Performance
	Threads int

	// Logging
	Quiet     bool
	Verbose   bool
	LogFormat string // text|json

	// Misc
	Version bool
}

// Register wires shared flags onto fs and returns a pointer to the "no-header"
// bool; the caller sets Common.Header = !noHeader after parsing.
func Register(fs *flag.FlagSet, c *Common) *bool {
	fs.StringVar(&c.Output, "output", "text", "output: text | json | jsonl [text]")
	fs.StringVar(&c.Output, "o", "text", "alias of --output")
	noHeader := false
	fs.BoolVar(&noHeader, "no-header", false, "suppress header lines [false]")

	fs.IntVar(&c.Threads, "threads", 0, "worker threads (0=all CPUs) [0]")
	fs.IntVar(&c.Threads, "t", 0, "alias of --threads")

	fs.BoolVar(&c.Quiet, "quiet", false, "only log warnings and errors [false]")
	fs.BoolVar(&c.Quiet, "q", false, "alias of --quiet")
	fs.BoolVar(&c.Verbose, "verbose", false, "debug logging, incl. MBAR iterations [false]")
	fs.StringVar(&c.LogFormat, "log-format", "text", "stderr log format: text | json [text]")

	fs.BoolVar(&c.Version, "v", false, "print version and exit [false]")
	fs.BoolVar(&c.Version, "version", false, "print version and exit [false]")
	return &noHeader
}

// Validate applies shared CLI invariants used by all tools.
func Validate(c *Common, formats ...string) error {
	if c.Threads < 0 {
		return errors.New("--threads must be ≥ 0")
	}
	if c.Quiet && c.Verbose {
		return errors.New("--quiet conflicts with --verbose")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid --log-format %q", c.LogFormat)
	}
	if len(formats) == 0 {
		formats = []string{"text", "json", "jsonl"}
	}
	for _, f := range formats {
		if c.Output == f {
			return nil
		}
	}
	return fmt.Errorf("invalid --output %q", c.Output)
}

// LogConfig maps the logging flags onto a logging.Config.
func (c *Common) LogConfig(service string) logging.Config {
	lc := logging.Config{Level: logging.LevelInfo, Service: service, JSON: c.LogFormat == "json", Quiet: c.Quiet}
	if c.Verbose {
		lc.Level = logging.LevelDebug
	}
	return lc
}
