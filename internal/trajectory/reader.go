// internal/trajectory/reader.go
package trajectory

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Options selects what Load reads.
type Options struct {
	// Column is the 1-based column holding the extension. 0 picks the second
	// column when the first row has at least two, else the first. The choice
	// holds for the whole file.
	Column int
	// EnergyColumn is the 1-based column holding the unbiased potential
	// energy in pN·nm. 0 reads no energies.
	EnergyColumn int
	// Scale multiplies every value (unit conversion, e.g. µm → nm = 1000).
	Scale float64
	// Stdin replaces os.Stdin for path "-".
	Stdin io.Reader
}

// Trajectory is one extension time series.
type Trajectory struct {
	Path     string
	Values   []float64
	Energies []float64 // nil unless Options.EnergyColumn is set
}

// Load reads a delimited time series. Blank lines and lines starting with '#'
// or '@' are skipped. A first data row whose selected field is not a number
// is taken as a header. Fields split on commas, tabs or spaces.
func Load(ctx context.Context, path string, opts Options) (*Trajectory, error) {
	rc, err := open(path, opts.Stdin)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return read(ctx, path, rc, opts)
}

func read(ctx context.Context, path string, r io.Reader, opts Options) (*Trajectory, error) {
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)

	tr := &Trajectory{Path: path}
	ln := 0
	col := opts.Column
	seenRow := false
	for sc.Scan() {
		ln++
		if ln&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '@' {
			continue
		}
		fields := splitFields(line)
		if col == 0 {
			col = 1
			if len(fields) >= 2 {
				col = 2
			}
		}
		first := !seenRow
		seenRow = true
		if need := max(col, opts.EnergyColumn); need > len(fields) {
			return nil, fmt.Errorf("%s:%d: need column %d, row has %d", path, ln, need, len(fields))
		}
		v, err := field(path, ln, fields, col)
		if err != nil {
			if first {
				continue // header
			}
			return nil, err
		}
		tr.Values = append(tr.Values, v*scale)
		if opts.EnergyColumn > 0 {
			e, err := field(path, ln, fields, opts.EnergyColumn)
			if err != nil {
				return nil, err
			}
			tr.Energies = append(tr.Energies, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(tr.Values) == 0 {
		return nil, fmt.Errorf("%s: no samples", path)
	}
	return tr, nil
}

// field parses the 1-based column col of a row.
func field(path string, ln int, fields []string, col int) (float64, error) {
	v, err := strconv.ParseFloat(fields[col-1], 64)
	if err != nil {
		return 0, fmt.Errorf("%s:%d: bad value %q in column %d", path, ln, fields[col-1], col)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s:%d: non-finite value %q", path, ln, fields[col-1])
	}
	return v, nil
}

func splitFields(line string) []string {
	if strings.ContainsRune(line, ',') {
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return strings.Fields(line)
}
