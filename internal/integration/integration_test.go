// internal/integration/integration_test.go
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forcepmf/internal/cmdutil"
	"forcepmf/internal/ineffapp"
	"forcepmf/internal/pmfapp"
	"forcepmf/pkg/api"
)

func TestEndToEnd_Text(t *testing.T) {
	specs := traces(t, t.TempDir(), []float64{0, 1.5, 3}, 600)

	var out, errBuf bytes.Buffer
	argv := append(forceArgs(specs), "--bins", "15", "--quiet")
	code := pmfapp.Run(argv, &out, &errBuf)
	require.Equal(t, cmdutil.ExitOK, code, errBuf.String())

	s := out.String()
	assert.Contains(t, s, "# offsets")
	assert.Contains(t, s, "# pmf method=histogram reference=lowest")
	assert.Contains(t, s, "center\tf_kt\tdf_kt\tcount")
	assert.NotContains(t, s, "# covariance")
}

func TestEndToEnd_JSONDeterministic(t *testing.T) {
	specs := traces(t, t.TempDir(), []float64{0, 1.5, 3}, 500)

	run := func() []byte {
		var out, errB bytes.Buffer
		argv := append(forceArgs(specs), "--output", "json", "--run-id", "fixed", "--threads", "2",
			"--bootstrap", "4", "--seed", "9", "--covariance", "-q")
		code := pmfapp.Run(argv, &out, &errB)
		require.Equal(t, cmdutil.ExitOK, code, errB.String())
		return out.Bytes()
	}
	first := run()
	require.Equal(t, string(first), string(run()))

	var rep api.ReportV1
	require.NoError(t, json.Unmarshal(first, &rep))
	assert.Equal(t, "fixed", rep.RunID)
	assert.True(t, rep.Converged)
	assert.Equal(t, "bootstrap", rep.Uncertainty)
	require.Len(t, rep.Offsets, 3)
	assert.Equal(t, 0.0, rep.Offsets[0].F)
	assert.Len(t, rep.Covariance, 3)
	assert.Len(t, rep.PMF, 40)
}

func TestEndToEnd_ConfigAndPlot(t *testing.T) {
	dir := t.TempDir()
	traces(t, dir, []float64{0, 2}, 400)
	run := write(t, filepath.Join(dir, "run.yaml"), `bias: constant-force
ensembles:
  - name: low
    path: trace_00.tsv
    force: 0
  - name: high
    path: trace_01.tsv
    force: 2
pmf:
  method: kde
  bins: 25
`)
	png := filepath.Join(dir, "pmf.png")

	var out, errB bytes.Buffer
	code := pmfapp.Run([]string{"--config", run, "--plot", png, "--output", "jsonl", "-q"}, &out, &errB)
	require.Equal(t, cmdutil.ExitOK, code, errB.String())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2+25)
	var first api.LineV1
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "offset", first.Kind)
	require.NotNil(t, first.Offset)
	assert.Equal(t, "low", first.Offset.Ensemble)

	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestEndToEnd_SplineWithBands(t *testing.T) {
	specs := traces(t, t.TempDir(), []float64{0, 1.5, 3}, 600)

	var out, errB bytes.Buffer
	argv := append(forceArgs(specs), "--pmf-method", "spline", "--spline-knots", "10", "--bins", "12",
		"--min", "-2", "--max", "5", "--mcmc", "1000", "--seed", "3", "--output", "json", "-q")
	code := pmfapp.Run(argv, &out, &errB)
	require.Equal(t, cmdutil.ExitOK, code, errB.String())

	var rep api.ReportV1
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, "spline", rep.PMFMethod)
	assert.Equal(t, "mcmc", rep.Uncertainty)
	assert.Equal(t, "2.5-97.5", rep.Band)
	require.NotNil(t, rep.Spline)
	assert.Equal(t, 10, rep.Spline.Knots)
	assert.Equal(t, 100, rep.Spline.MCMCStates)
	assert.Greater(t, rep.Spline.BIC, rep.Spline.AIC)
	require.Len(t, rep.PMF, 12)
	for _, b := range rep.PMF {
		require.NotNil(t, b.F)
		require.NotNil(t, b.Low)
		require.NotNil(t, b.High)
	}
}

func TestEndToEnd_NotConvergedStillPrints(t *testing.T) {
	specs := traces(t, t.TempDir(), []float64{0, 1.5, 3}, 300)

	var out, errB bytes.Buffer
	argv := append(forceArgs(specs), "--solver", "self-consistent", "--max-iterations", "1")
	code := pmfapp.Run(argv, &out, &errB)
	assert.Equal(t, cmdutil.ExitNotConverged, code)
	assert.Contains(t, out.String(), "not-converged")
	assert.Contains(t, errB.String(), "not converged")
}

func TestEndToEnd_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	bad := write(t, filepath.Join(dir, "bad.tsv"), "0 1.0\n1 oops\n")
	good := traces(t, dir, []float64{1}, 50)[0]

	var errB bytes.Buffer
	code := pmfapp.Run([]string{"--force", good, "--force", "2:" + bad}, &bytes.Buffer{}, &errB)
	assert.Equal(t, cmdutil.ExitUsage, code)
	assert.Contains(t, errB.String(), "bad.tsv:2")

	code = pmfapp.Run([]string{"--force", good, "--force", "2:" + filepath.Join(dir, "missing.tsv")}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, cmdutil.ExitIO, code)

	code = pmfapp.Run([]string{"--output", "xml", "--force", good}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, cmdutil.ExitUsage, code)

	var out bytes.Buffer
	code = pmfapp.Run([]string{"-h"}, &out, &bytes.Buffer{})
	assert.Equal(t, cmdutil.ExitOK, code)
	assert.Contains(t, out.String(), "--force")
}

func TestEndToEnd_Cancelled(t *testing.T) {
	specs := traces(t, t.TempDir(), []float64{0, 1.5}, 200)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := pmfapp.RunContext(ctx, forceArgs(specs), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, cmdutil.ExitCancelled, code)
}

func TestIneff_Rows(t *testing.T) {
	dir := t.TempDir()
	traces(t, dir, []float64{0, 1}, 1000)
	paths := []string{filepath.Join(dir, "trace_00.tsv"), filepath.Join(dir, "trace_01.tsv")}

	var out, errB bytes.Buffer
	code := ineffapp.Run(append([]string{"--output", "json"}, paths...), &out, &errB)
	require.Equal(t, cmdutil.ExitOK, code, errB.String())

	var rows []api.InefficiencyV1
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 2)
	for i, r := range rows {
		assert.Equal(t, paths[i], r.Source)
		assert.Equal(t, 1000, r.Frames)
		assert.InDelta(t, 1, r.G, 0.5)
		assert.InDelta(t, 1000/r.G, r.NEff, 1e-9)
	}

	out.Reset()
	code = ineffapp.Run([]string{filepath.Join(dir, "trace_*.tsv")}, &out, &errB)
	require.Equal(t, cmdutil.ExitOK, code, errB.String())
	assert.True(t, strings.HasPrefix(out.String(), "source_file\t"))
	assert.Equal(t, 3, strings.Count(out.String(), "\n"))
}

func TestEndToEnd_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	code := pmfapp.Run([]string{"--config", filepath.Join(dir, "nope.yaml")}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, cmdutil.ExitIO, code)

	run := write(t, filepath.Join(dir, "run.yaml"), "temperature: -3\nensembles: []\n")
	var errB bytes.Buffer
	code = pmfapp.Run([]string{"--config", run}, &bytes.Buffer{}, &errB)
	assert.Equal(t, cmdutil.ExitUsage, code)
	assert.Contains(t, errB.String(), "Temperature")
}
