// internal/pipeline/source.go
package pipeline

import (
	"context"

	"forcepmf/internal/trajectory"
)

// Series is one loaded trajectory. Energies is nil or parallel to Values.
type Series struct {
	Values   []float64
	Energies []float64
}

// Source is the minimal capability the pipeline needs to read one series.
// Tests substitute in-memory fakes.
type Source interface {
	Load(ctx context.Context, path string) (Series, error)
}

// FileSource reads trajectories from disk (or stdin for "-").
type FileSource struct {
	Options trajectory.Options
}

func (s FileSource) Load(ctx context.Context, path string) (Series, error) {
	tr, err := trajectory.Load(ctx, path, s.Options)
	if err != nil {
		return Series{}, err
	}
	return Series{Values: tr.Values, Energies: tr.Energies}, nil
}
