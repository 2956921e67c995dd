package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchLatency   *prometheus.HistogramVec
	fetchBars      *prometheus.HistogramVec
	fitLatency     *prometheus.HistogramVec
	fitIterations  *prometheus.HistogramVec
	nonConvergence prometheus.Counter
	cacheTotal     *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
}

// New registers the recorder's collectors on the default registerer.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder's collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimeapi_fetch_duration_seconds",
				Help:    "Duration of bar fetches per source",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		fetchBars: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimeapi_fetch_bars",
				Help:    "Number of bars returned per fetch",
				Buckets: []float64{10, 50, 100, 250, 500, 1_000, 5_000, 20_000},
			},
			[]string{"source"},
		),
		fitLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimeapi_fit_duration_seconds",
				Help:    "Duration of HMM fits",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"n_regimes"},
		),
		fitIterations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimeapi_fit_iterations",
				Help:    "EM iterations per HMM fit",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 500},
			},
			[]string{"n_regimes"},
		),
		nonConvergence: f.NewCounter(
			prometheus.CounterOpts{
				Name: "regimeapi_fit_nonconvergence_total",
				Help: "HMM fits that stopped at the iteration cap",
			},
		),
		cacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimeapi_cache_requests_total",
				Help: "Cache lookups by kind and outcome",
			},
			[]string{"kind", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimeapi_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind"},
		),
	}
}

// RecordFetch records a completed bar fetch.
func (r *Recorder) RecordFetch(source string, bars int, seconds float64) {
	r.fetchLatency.WithLabelValues(source).Observe(seconds)
	r.fetchBars.WithLabelValues(source).Observe(float64(bars))
}

// RecordFit records a completed HMM fit.
func (r *Recorder) RecordFit(nRegimes, iterations int, converged bool, seconds float64) {
	k := strconv.Itoa(nRegimes)
	r.fitLatency.WithLabelValues(k).Observe(seconds)
	r.fitIterations.WithLabelValues(k).Observe(float64(iterations))
	if !converged {
		r.nonConvergence.Inc()
	}
}

// RecordCache records a cache lookup.
func (r *Recorder) RecordCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheTotal.WithLabelValues(kind, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordFetch(string, int, float64)  {}
func (Nop) RecordFit(int, int, bool, float64) {}
func (Nop) RecordCache(string, bool)          {}
func (Nop) RecordError(string)                {}
