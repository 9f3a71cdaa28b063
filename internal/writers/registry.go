// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"

	"forcepmf/internal/output"
)

// ReportFunc writes one report in some format.
type ReportFunc func(w io.Writer, r output.Report, header bool) error

var reportWriters = map[string]ReportFunc{}

// RegisterReport installs fn for format (last registration wins).
func RegisterReport(format string, fn ReportFunc) { reportWriters[format] = fn }

func init() {
	RegisterReport(output.FormatText, output.WriteText)
	RegisterReport(output.FormatJSON, func(w io.Writer, r output.Report, _ bool) error {
		return output.WriteJSON(w, r)
	})
	RegisterReport(output.FormatJSONL, func(w io.Writer, r output.Report, _ bool) error {
		return WriteReportJSONL(w, r)
	})
}

// Formats lists the registered formats, sorted.
func Formats() []string {
	out := make([]string, 0, len(reportWriters))
	for f := range reportWriters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// WriteReport dispatches to the writer registered for format. A broken pipe
// is swallowed.
func WriteReport(format string, w io.Writer, r output.Report, header bool) error {
	fn, ok := reportWriters[format]
	if !ok {
		return fmt.Errorf("unknown report format %q (no writer registered)", format)
	}
	if err := fn(w, r, header); err != nil && !IsBrokenPipe(err) {
		return err
	}
	return nil
}
