package models

import (
	"fmt"
	"time"
)

// FeatureSet selects the observation vector fed to the regime model.
type FeatureSet string

const (
	FeaturesReturns      FeatureSet = "returns"
	FeaturesReturnsRange FeatureSet = "returns_range"
)

// Dims returns the observation dimension.
func (f FeatureSet) Dims() int {
	if f == FeaturesReturnsRange {
		return 2
	}
	return 1
}

// Names lists the feature columns in order.
func (f FeatureSet) Names() []string {
	if f == FeaturesReturnsRange {
		return []string{"log_return", "range"}
	}
	return []string{"log_return"}
}

// RegimePoint assigns a state to the bar at Timestamp.
type RegimePoint struct {
	Timestamp time.Time `json:"timestamp"`
	State     int       `json:"state"`
}

type StateParameters struct {
	State                int       `json:"state"`
	Label                string    `json:"label"`
	Mean                 []float64 `json:"mean"`
	Variance             []float64 `json:"variance"`
	Occupancy            float64   `json:"occupancy"`
	AnnualizedVolatility float64   `json:"annualized_volatility"`
}

type ModelParameters struct {
	Features            []string          `json:"features"`
	InitialDistribution []float64         `json:"initial_distribution"`
	TransitionMatrix    [][]float64       `json:"transition_matrix"`
	States              []StateParameters `json:"states"`
}

// CurrentRegime is the filtered state estimate at the last observation.
type CurrentRegime struct {
	State         int       `json:"state"`
	Label         string    `json:"label"`
	Probabilities []float64 `json:"probabilities"`
}

// RegimeResult is the /regimes response body.
type RegimeResult struct {
	Symbol         string          `json:"symbol"`
	Granularity    Granularity     `json:"granularity"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	NRegimes       int             `json:"n_regimes"`
	RegimeSequence []RegimePoint   `json:"regime_sequence"`
	Parameters     ModelParameters `json:"parameters"`
	LogLikelihood  float64         `json:"log_likelihood"`
	Iterations     int             `json:"iterations"`
	Converged      bool            `json:"converged"`
	Current        CurrentRegime   `json:"current"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// RegimeLabels names canonically ordered states (ascending mean return).
func RegimeLabels(k int) []string {
	switch k {
	case 1:
		return []string{"single"}
	case 2:
		return []string{"bear", "bull"}
	case 3:
		return []string{"bear", "sideways", "bull"}
	}
	labels := make([]string, k)
	for i := range labels {
		labels[i] = fmt.Sprintf("state_%d", i)
	}
	return labels
}

// RegimeComputedEvent is published after a successful fit.
type RegimeComputedEvent struct {
	ID            string      `json:"id"`
	Symbol        string      `json:"symbol"`
	Granularity   Granularity `json:"granularity"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date"`
	NRegimes      int         `json:"n_regimes"`
	CurrentState  int         `json:"current_state"`
	CurrentLabel  string      `json:"current_label"`
	LogLikelihood float64     `json:"log_likelihood"`
	Converged     bool        `json:"converged"`
	Observations  int         `json:"observations"`
	ComputedAt    time.Time   `json:"computed_at"`
}
