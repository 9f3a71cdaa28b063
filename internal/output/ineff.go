// internal/output/ineff.go
package output

import (
	"bufio"
	"fmt"
	"io"

	"forcepmf/pkg/api"
)

// WriteInefficiencyText writes one TSV row per series.
func WriteInefficiencyText(w io.Writer, rows []api.InefficiencyV1, header bool) error {
	bw := bufio.NewWriter(w)
	if header {
		fmt.Fprintln(bw, InefficiencyHeader)
	}
	for _, r := range rows {
		fmt.Fprintf(bw, "%s\t%d\t%d\t%s\t%s\n", r.Source, r.Frames, r.Start, FormatFloat(r.G), FormatFloat(r.NEff))
	}
	return bw.Flush()
}

// WriteInefficiencyJSON writes the rows as a JSON array.
func WriteInefficiencyJSON(w io.Writer, rows []api.InefficiencyV1) error {
	if rows == nil {
		rows = []api.InefficiencyV1{}
	}
	return encodePretty(w, rows)
}
