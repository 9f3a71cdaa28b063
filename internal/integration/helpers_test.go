package integration

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"forcepmf/core/bias"
)

// traces writes one two-column trace (time, extension) per force for a
// harmonic molecule of stiffness 1 pN/nm and returns "FORCE:PATH" specs.
func traces(t *testing.T, dir string, forces []float64, n int) []string {
	t.Helper()
	beta := bias.Beta(bias.DefaultTemperature)
	sd := math.Sqrt(1 / beta)
	r := rand.New(rand.NewPCG(42, 1))
	specs := make([]string, len(forces))
	for i, f := range forces {
		var b strings.Builder
		b.WriteString("# time_s extension_nm\n")
		for j := 0; j < n; j++ {
			fmt.Fprintf(&b, "%.3f\t%.6f\n", float64(j)*0.001, f+sd*r.NormFloat64())
		}
		p := filepath.Join(dir, fmt.Sprintf("trace_%02d.tsv", i))
		write(t, p, b.String())
		specs[i] = fmt.Sprintf("%g:%s", f, p)
	}
	return specs
}

func write(t *testing.T, fn, data string) string {
	t.Helper()
	if err := os.WriteFile(fn, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", fn, err)
	}
	return fn
}

func forceArgs(specs []string) []string {
	var argv []string
	for _, s := range specs {
		argv = append(argv, "--force", s)
	}
	return argv
}
