package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RegimeAPI/internal/domain/models"
	domsvc "RegimeAPI/internal/domain/service"
	"RegimeAPI/internal/services/features"
	"RegimeAPI/internal/services/hmm"
	"RegimeAPI/pkg/config"
	"RegimeAPI/pkg/logger"
)

// HMMRegimeDetector fits a diagonal Gaussian HMM in-process and labels bars by regime.
type HMMRegimeDetector struct {
	cfg      config.RegimeConfig
	features models.FeatureSet
	log      *logger.Logger
}

func NewHMMRegimeDetector(cfg *config.Config, l *logger.Logger) *HMMRegimeDetector {
	if l == nil {
		l = logger.Nop()
	}
	return &HMMRegimeDetector{
		cfg:      cfg.Regime,
		features: models.FeatureSet(cfg.Regime.Features),
		log:      l.With(logger.String("component", "regime_detector")),
	}
}

// FitRegimes returns a result with one state per bar after the first. Symbol, dates and
// granularity are left for the caller to fill.
func (d *HMMRegimeDetector) FitRegimes(ctx context.Context, bars []models.Bar, nRegimes int) (*models.RegimeResult, error) {
	if nRegimes < 1 || nRegimes > d.cfg.MaxRegimes {
		return nil, models.Errorf(models.ErrInvalidParameter, "n_regimes must be between 1 and %d, got %d", d.cfg.MaxRegimes, nRegimes)
	}
	need := nRegimes * d.cfg.MinObservationsPerState
	if need < 2 {
		need = 2
	}
	if len(bars) < need {
		return nil, models.Errorf(models.ErrInsufficientData,
			"need at least %d bars for %d regimes, got %d", need, nRegimes, len(bars))
	}

	obs := features.Observations(bars, d.features)
	start := time.Now()
	fit, err := hmm.Train(ctx, obs, hmm.Config{
		States:        nRegimes,
		MaxIterations: d.cfg.MaxIterations,
		Tolerance:     d.cfg.Tolerance,
		Seed:          d.cfg.Seed,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, models.Wrap(models.ErrCanceled, err, "regime fit canceled")
		}
		return nil, fmt.Errorf("train hmm: %w", err)
	}

	if !fit.Converged && d.cfg.StrictConvergence {
		return nil, models.Errorf(models.ErrNonConvergence,
			"model did not converge within %d iterations", fit.Iterations)
	}

	m := fit.Model
	m.Canonicalize()

	path, _, err := m.Viterbi(obs)
	if err != nil {
		return nil, fmt.Errorf("viterbi: %w", err)
	}
	current, err := m.Filter(obs)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	labels := models.RegimeLabels(nRegimes)
	occ := hmm.Occupancy(path, nRegimes)

	seq := make([]models.RegimePoint, len(path))
	for t, s := range path {
		seq[t] = models.RegimePoint{Timestamp: bars[t+1].Timestamp, State: s}
	}

	states := make([]models.StateParameters, nRegimes)
	for k := range states {
		states[k] = models.StateParameters{
			State:     k,
			Label:     labels[k],
			Mean:      m.Means[k],
			Variance:  m.Vars[k],
			Occupancy: occ[k],
		}
	}

	curState := 0
	for k, p := range current {
		if p > current[curState] {
			curState = k
		}
	}

	res := &models.RegimeResult{
		NRegimes:       nRegimes,
		RegimeSequence: seq,
		Parameters: models.ModelParameters{
			Features:            d.features.Names(),
			InitialDistribution: m.Pi,
			TransitionMatrix:    m.A,
			States:              states,
		},
		LogLikelihood: fit.LogLikelihood,
		Iterations:    fit.Iterations,
		Converged:     fit.Converged,
		Current: models.CurrentRegime{
			State:         curState,
			Label:         labels[curState],
			Probabilities: current,
		},
	}
	if !fit.Converged {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("model did not converge within %d iterations; returning best iterate", fit.Iterations))
	}

	d.log.Debug("regime fit complete",
		logger.Int("observations", len(obs)),
		logger.Int("n_regimes", nRegimes),
		logger.Int("iterations", fit.Iterations),
		logger.Bool("converged", fit.Converged),
		logger.Float64("log_likelihood", fit.LogLikelihood),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

var _ domsvc.RegimeModel = (*HMMRegimeDetector)(nil)
