// core/bias/bias.go
//
// Bias potentials in reduced (kT) units and assembly of the MBAR bias matrix.
package bias

import (
	"fmt"
	"math"

	"forcepmf/core/mbar"

	"gonum.org/v1/gonum/mat"
)

// Boltzmann is kB in pN·nm/K.
const Boltzmann = 0.0138064852

// DefaultTemperature is room temperature in K.
const DefaultTemperature = 298.15

// Beta returns 1/kT in 1/(pN·nm) at temperature tempK.
func Beta(tempK float64) float64 { return 1 / (Boltzmann * tempK) }

// Potential is a reduced bias energy over the reaction coordinate.
type Potential interface {
	Reduced(x float64) float64
}

// ConstantForce is a force clamp: u(x) = -β·F·x, x in nm, F in pN.
type ConstantForce struct {
	ForcePN float64
	Beta    float64
}

func (c ConstantForce) Reduced(x float64) float64 { return -c.Beta * c.ForcePN * x }

// Harmonic is an umbrella restraint u(x) = β·k/2·d² with d = x - Center.
// When Period > 0, d is the minimum-image deviation (torsions).
type Harmonic struct {
	Center float64
	Spring float64 // pN/nm, or energy/unit² of x
	Beta   float64
	Period float64
}

func (h Harmonic) Reduced(x float64) float64 {
	d := x - h.Center
	if h.Period > 0 {
		d -= h.Period * math.Round(d/h.Period)
	}
	return 0.5 * h.Beta * h.Spring * d * d
}

// Zero is the unbiased state.
type Zero struct{}

func (Zero) Reduced(float64) float64 { return 0 }

// Ensemble is one sampled thermodynamic state.
type Ensemble struct {
	Name      string
	Force     float64 // pN, informational for force-clamp ensembles
	Potential Potential
	// Beta scales unbiased energies in BuildMatrixWithEnergies. Its
	// Potential must be reduced at the same temperature.
	Beta float64
}

// Evaluate returns p.Reduced at every x.
func Evaluate(p Potential, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = p.Reduced(x)
	}
	return out
}

// BuildMatrix pools samples (samples[i] drawn from ens[i]) and evaluates every
// ensemble's potential on every pooled sample. It returns the bias matrix and
// the pooled reaction coordinate in row order.
func BuildMatrix(ens []Ensemble, samples [][]float64) (*mbar.Matrix, []float64, error) {
	return BuildMatrixWithEnergies(ens, samples, nil)
}

// BuildMatrixWithEnergies is BuildMatrix for ensembles at different
// temperatures: u[n,k] = β_k·E_n + bias_k(x_n), where energies[i] holds the
// unbiased energy (pN·nm) of every sample in samples[i]. A nil energies
// drops the β_k·E_n term.
func BuildMatrixWithEnergies(ens []Ensemble, samples, energies [][]float64) (*mbar.Matrix, []float64, error) {
	if len(ens) == 0 {
		return nil, nil, fmt.Errorf("bias: no ensembles")
	}
	if len(samples) != len(ens) {
		return nil, nil, fmt.Errorf("bias: %d sample sets for %d ensembles", len(samples), len(ens))
	}
	if energies != nil && len(energies) != len(ens) {
		return nil, nil, fmt.Errorf("bias: %d energy sets for %d ensembles", len(energies), len(ens))
	}
	for i, e := range ens {
		if e.Potential == nil {
			return nil, nil, fmt.Errorf("bias: ensemble %d (%s) has no potential", i, e.Name)
		}
		if energies == nil {
			continue
		}
		if !(e.Beta > 0) {
			return nil, nil, fmt.Errorf("bias: ensemble %d (%s) needs a positive beta to reduce energies", i, e.Name)
		}
		if len(energies[i]) != len(samples[i]) {
			return nil, nil, fmt.Errorf("bias: ensemble %d (%s) has %d energies for %d samples", i, e.Name, len(energies[i]), len(samples[i]))
		}
	}
	k := len(ens)
	counts := make([]int, k)
	var pooled, pooledE []float64
	for i, s := range samples {
		counts[i] = len(s)
		pooled = append(pooled, s...)
		if energies != nil {
			pooledE = append(pooledE, energies[i]...)
		}
	}
	n := len(pooled)
	if n == 0 {
		return nil, nil, fmt.Errorf("bias: no samples")
	}
	u := mat.NewDense(n, k, nil)
	for r, x := range pooled {
		row := u.RawRowView(r)
		for j, e := range ens {
			row[j] = e.Potential.Reduced(x)
			if pooledE != nil {
				row[j] += e.Beta * pooledE[r]
			}
		}
	}
	m, err := mbar.NewMatrix(u, counts)
	if err != nil {
		return nil, nil, err
	}
	return m, pooled, nil
}
