package hmm

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Config controls Baum-Welch fitting.
type Config struct {
	States        int
	MaxIterations int
	Tolerance     float64
	Seed          uint64
	// StayProb is the initial diagonal of the transition matrix.
	StayProb float64
	// VarianceFloor is relative to the per-dimension sample variance.
	VarianceFloor float64
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 200
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 1e-6
	}
	if c.StayProb <= 0 || c.StayProb >= 1 {
		c.StayProb = 0.9
	}
	if c.VarianceFloor <= 0 {
		c.VarianceFloor = 1e-3
	}
	return c
}

// Fit is the outcome of Train. Model is the best iterate seen.
type Fit struct {
	Model         *Model
	LogLikelihood float64
	Iterations    int
	Converged     bool
}

// Train fits a K-state model to obs. It checks ctx before every EM iteration and
// returns ctx.Err() unwrapped on cancellation. Non-convergence is not an error;
// callers inspect Fit.Converged.
func Train(ctx context.Context, obs [][]float64, cfg Config) (*Fit, error) {
	cfg = cfg.withDefaults()
	if cfg.States < 1 {
		return nil, fmt.Errorf("hmm: states must be >= 1, got %d", cfg.States)
	}
	if len(obs) == 0 {
		return nil, ErrNoObservations
	}
	d := len(obs[0])
	if d == 0 {
		return nil, fmt.Errorf("%w: zero-width observations", ErrDimension)
	}

	floor := varianceFloor(obs, d, cfg.VarianceFloor)
	m := initialModel(obs, cfg, floor)
	if err := m.Validate(obs); err != nil {
		return nil, err
	}

	if cfg.States == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ll, err := m.LogLikelihood(obs)
		if err != nil {
			return nil, err
		}
		return &Fit{Model: m, LogLikelihood: ll, Iterations: 1, Converged: true}, nil
	}

	var (
		best     *Model
		bestLL   = math.Inf(-1)
		prevLL   = math.Inf(-1)
		iters    int
		converge bool
	)
	for it := 1; it <= cfg.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		post := m.estep(obs)
		iters = it
		if math.IsNaN(post.logLik) || math.IsInf(post.logLik, 0) {
			break
		}
		if post.logLik > bestLL {
			best, bestLL = m.Clone(), post.logLik
		}
		if it > 1 && math.Abs(post.logLik-prevLL) < cfg.Tolerance {
			converge = true
			break
		}
		prevLL = post.logLik
		m.mstep(obs, post, floor)
	}
	if best == nil {
		return nil, ErrNumerical
	}
	return &Fit{Model: best, LogLikelihood: bestLL, Iterations: iters, Converged: converge}, nil
}

func varianceFloor(obs [][]float64, d int, rel float64) []float64 {
	floor := make([]float64, d)
	col := make([]float64, len(obs))
	for j := 0; j < d; j++ {
		for t, x := range obs {
			col[t] = x[j]
		}
		v := stat.PopVariance(col, nil)
		if math.IsNaN(v) {
			v = 0
		}
		floor[j] = rel*v + 1e-12
	}
	return floor
}

// initialModel splits observations into K quantile buckets on the first feature,
// seeds each state from its bucket, and jitters the means with a seeded PCG source.
func initialModel(obs [][]float64, cfg Config, floor []float64) *Model {
	k, d := cfg.States, len(obs[0])
	m := newModel(k, d)

	idx := make([]int, len(obs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return obs[idx[a]][0] < obs[idx[b]][0] })

	global := make([]float64, d)
	col := make([]float64, len(obs))
	for j := 0; j < d; j++ {
		for t, x := range obs {
			col[t] = x[j]
		}
		global[j] = stat.PopVariance(col, nil)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	for s := 0; s < k; s++ {
		lo := s * len(idx) / k
		hi := (s + 1) * len(idx) / k
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(idx) {
			lo, hi = len(idx)-1, len(idx)
		}
		bucket := make([]float64, 0, hi-lo)
		for j := 0; j < d; j++ {
			bucket = bucket[:0]
			for _, i := range idx[lo:hi] {
				bucket = append(bucket, obs[i][j])
			}
			mean, v := stat.PopMeanVariance(bucket, nil)
			if len(bucket) < 2 || v < floor[j] {
				v = math.Max(global[j], floor[j])
			}
			if k > 1 {
				mean += rng.NormFloat64() * 0.01 * math.Sqrt(global[j])
			}
			m.Means[s][j] = mean
			m.Vars[s][j] = v
		}
	}

	for i := 0; i < k; i++ {
		m.Pi[i] = 1 / float64(k)
		for j := 0; j < k; j++ {
			if k == 1 {
				m.A[i][j] = 1
			} else if i == j {
				m.A[i][j] = cfg.StayProb
			} else {
				m.A[i][j] = (1 - cfg.StayProb) / float64(k-1)
			}
		}
	}
	return m
}

// mstep re-estimates parameters from posteriors. States with negligible
// occupancy keep their emission parameters.
func (m *Model) mstep(obs [][]float64, p *posteriors, floor []float64) {
	copy(m.Pi, p.gamma[0])
	normalize(m.Pi)

	T := len(obs)
	for i := 0; i < m.K; i++ {
		var occ float64
		for t := 0; t < T-1; t++ {
			occ += p.gamma[t][i]
		}
		if occ > probFloor {
			for j := 0; j < m.K; j++ {
				m.A[i][j] = p.xiSum[i][j] / occ
			}
		}
		normalize(m.A[i])
	}

	for k := 0; k < m.K; k++ {
		var w float64
		for t := 0; t < T; t++ {
			w += p.gamma[t][k]
		}
		if w < probFloor {
			continue
		}
		for d := 0; d < m.D; d++ {
			var mu float64
			for t := 0; t < T; t++ {
				mu += p.gamma[t][k] * obs[t][d]
			}
			mu /= w
			var v float64
			for t := 0; t < T; t++ {
				diff := obs[t][d] - mu
				v += p.gamma[t][k] * diff * diff
			}
			v /= w
			m.Means[k][d] = mu
			m.Vars[k][d] = v + floor[d]
		}
	}
}

// Occupancy returns the fraction of path steps spent in each state.
func Occupancy(path []int, k int) []float64 {
	out := make([]float64, k)
	if len(path) == 0 {
		return out
	}
	for _, s := range path {
		out[s]++
	}
	for i := range out {
		out[i] /= float64(len(path))
	}
	return out
}
