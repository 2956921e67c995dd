// Package hmm implements a Gaussian hidden Markov model with diagonal covariance,
// fitted by scaled Baum-Welch and decoded with log-space Viterbi.
package hmm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrNoObservations = errors.New("hmm: no observations")
	ErrDimension      = errors.New("hmm: inconsistent observation dimension")
	ErrNumerical      = errors.New("hmm: likelihood is not finite")
)

const probFloor = 1e-12

// Model holds the parameters of a K-state HMM over D-dimensional observations.
type Model struct {
	K     int
	D     int
	Pi    []float64
	A     [][]float64
	Means [][]float64
	Vars  [][]float64
}

func newModel(k, d int) *Model {
	m := &Model{
		K:     k,
		D:     d,
		Pi:    make([]float64, k),
		A:     make([][]float64, k),
		Means: make([][]float64, k),
		Vars:  make([][]float64, k),
	}
	for i := 0; i < k; i++ {
		m.A[i] = make([]float64, k)
		m.Means[i] = make([]float64, d)
		m.Vars[i] = make([]float64, d)
	}
	return m
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	c := newModel(m.K, m.D)
	copy(c.Pi, m.Pi)
	for i := 0; i < m.K; i++ {
		copy(c.A[i], m.A[i])
		copy(c.Means[i], m.Means[i])
		copy(c.Vars[i], m.Vars[i])
	}
	return c
}

// Validate checks that obs is non-empty and matches the model dimension.
func (m *Model) Validate(obs [][]float64) error {
	if len(obs) == 0 {
		return ErrNoObservations
	}
	for t, x := range obs {
		if len(x) != m.D {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrDimension, t, len(x), m.D)
		}
	}
	return nil
}

// logEmission returns log p(x | state k).
func (m *Model) logEmission(k int, x []float64) float64 {
	var lp float64
	for d, v := range x {
		n := distuv.Normal{Mu: m.Means[k][d], Sigma: math.Sqrt(m.Vars[k][d])}
		lp += n.LogProb(v)
	}
	return lp
}

// emissionTable returns log emission densities, indexed [t][k].
func (m *Model) emissionTable(obs [][]float64) [][]float64 {
	out := make([][]float64, len(obs))
	for t, x := range obs {
		row := make([]float64, m.K)
		for k := 0; k < m.K; k++ {
			row[k] = m.logEmission(k, x)
		}
		out[t] = row
	}
	return out
}

// normalize scales v to sum to one after flooring each entry.
func normalize(v []float64) {
	var s float64
	for i := range v {
		if v[i] < probFloor || math.IsNaN(v[i]) {
			v[i] = probFloor
		}
		s += v[i]
	}
	for i := range v {
		v[i] /= s
	}
}
