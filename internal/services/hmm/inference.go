package hmm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// posteriors holds the E-step quantities for one pass over the data.
type posteriors struct {
	logLik float64
	gamma  [][]float64 // [t][k]
	xiSum  [][]float64 // [i][j], summed over t
	alpha  [][]float64 // scaled forward variables
}

// scaledEmissions exponentiates the log table row by row after subtracting the row max.
// The returned offsets must be added back to the log-likelihood.
func scaledEmissions(logB [][]float64) ([][]float64, []float64) {
	b := make([][]float64, len(logB))
	offsets := make([]float64, len(logB))
	for t, row := range logB {
		mx := floats.Max(row)
		offsets[t] = mx
		r := make([]float64, len(row))
		for k, v := range row {
			r[k] = math.Exp(v - mx)
		}
		b[t] = r
	}
	return b, offsets
}

// forward runs the scaled forward recursion; alpha rows sum to one.
func (m *Model) forward(b [][]float64) (alpha [][]float64, scale []float64) {
	T := len(b)
	alpha = make([][]float64, T)
	scale = make([]float64, T)
	for t := 0; t < T; t++ {
		a := make([]float64, m.K)
		for j := 0; j < m.K; j++ {
			var p float64
			if t == 0 {
				p = m.Pi[j]
			} else {
				for i := 0; i < m.K; i++ {
					p += alpha[t-1][i] * m.A[i][j]
				}
			}
			a[j] = p * b[t][j]
		}
		c := floats.Sum(a)
		if c <= 0 || math.IsNaN(c) {
			c = math.SmallestNonzeroFloat64
		}
		floats.Scale(1/c, a)
		alpha[t] = a
		scale[t] = c
	}
	return alpha, scale
}

// backward runs the backward recursion using the forward scale factors.
func (m *Model) backward(b [][]float64, scale []float64) [][]float64 {
	T := len(b)
	beta := make([][]float64, T)
	beta[T-1] = make([]float64, m.K)
	for k := range beta[T-1] {
		beta[T-1][k] = 1
	}
	for t := T - 2; t >= 0; t-- {
		row := make([]float64, m.K)
		for i := 0; i < m.K; i++ {
			var s float64
			for j := 0; j < m.K; j++ {
				s += m.A[i][j] * b[t+1][j] * beta[t+1][j]
			}
			row[i] = s / scale[t+1]
		}
		beta[t] = row
	}
	return beta
}

func (m *Model) estep(obs [][]float64) *posteriors {
	b, offsets := scaledEmissions(m.emissionTable(obs))
	alpha, scale := m.forward(b)
	beta := m.backward(b, scale)

	T := len(obs)
	p := &posteriors{
		gamma: make([][]float64, T),
		xiSum: make([][]float64, m.K),
		alpha: alpha,
	}
	for t := 0; t < T; t++ {
		p.logLik += math.Log(scale[t]) + offsets[t]
		g := make([]float64, m.K)
		floats.MulTo(g, alpha[t], beta[t])
		if s := floats.Sum(g); s > 0 {
			floats.Scale(1/s, g)
		}
		p.gamma[t] = g
	}
	for i := 0; i < m.K; i++ {
		p.xiSum[i] = make([]float64, m.K)
	}
	for t := 0; t < T-1; t++ {
		for i := 0; i < m.K; i++ {
			for j := 0; j < m.K; j++ {
				p.xiSum[i][j] += alpha[t][i] * m.A[i][j] * b[t+1][j] * beta[t+1][j] / scale[t+1]
			}
		}
	}
	return p
}

// LogLikelihood returns log p(obs | model).
func (m *Model) LogLikelihood(obs [][]float64) (float64, error) {
	if err := m.Validate(obs); err != nil {
		return 0, err
	}
	b, offsets := scaledEmissions(m.emissionTable(obs))
	_, scale := m.forward(b)
	var ll float64
	for t := range scale {
		ll += math.Log(scale[t]) + offsets[t]
	}
	return ll, nil
}

// Filter returns the forward-filtered state distribution at the last observation.
func (m *Model) Filter(obs [][]float64) ([]float64, error) {
	if err := m.Validate(obs); err != nil {
		return nil, err
	}
	b, _ := scaledEmissions(m.emissionTable(obs))
	alpha, _ := m.forward(b)
	last := make([]float64, m.K)
	copy(last, alpha[len(alpha)-1])
	return last, nil
}

// Viterbi returns the most likely state path and its log probability.
func (m *Model) Viterbi(obs [][]float64) ([]int, float64, error) {
	if err := m.Validate(obs); err != nil {
		return nil, 0, err
	}
	T := len(obs)
	logB := m.emissionTable(obs)
	logA := make([][]float64, m.K)
	for i := range logA {
		logA[i] = make([]float64, m.K)
		for j := range logA[i] {
			logA[i][j] = math.Log(m.A[i][j])
		}
	}

	delta := make([]float64, m.K)
	for k := 0; k < m.K; k++ {
		delta[k] = math.Log(m.Pi[k]) + logB[0][k]
	}
	back := make([][]int, T)
	next := make([]float64, m.K)
	for t := 1; t < T; t++ {
		back[t] = make([]int, m.K)
		for j := 0; j < m.K; j++ {
			best, arg := math.Inf(-1), 0
			for i := 0; i < m.K; i++ {
				if v := delta[i] + logA[i][j]; v > best {
					best, arg = v, i
				}
			}
			next[j] = best + logB[t][j]
			back[t][j] = arg
		}
		delta, next = next, delta
	}

	path := make([]int, T)
	path[T-1] = floats.MaxIdx(delta)
	logProb := delta[path[T-1]]
	for t := T - 1; t > 0; t-- {
		path[t-1] = back[t][path[t]]
	}
	return path, logProb, nil
}
