package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"
	domsvc "RegimeAPI/internal/domain/service"
	"RegimeAPI/internal/services/features"
	"RegimeAPI/pkg/cache"
	"RegimeAPI/pkg/config"
	"RegimeAPI/pkg/logger"
	"RegimeAPI/pkg/metrics"
	"RegimeAPI/pkg/pool"
	"RegimeAPI/pkg/util"

	"github.com/google/uuid"
)

const regimesCacheKind = "regimes"

// RegimeUseCase fetches bars for a validated query and fits the regime model on the worker pool.
type RegimeUseCase struct {
	quotes  *QuoteFetcher
	model   domsvc.RegimeModel
	pool    *pool.Pool
	cache   cache.Service
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	log     *logger.Logger

	ttl            time.Duration
	defaultRegimes int
	maxRegimes     int
	features       models.FeatureSet
}

// NewRegimeUseCase wires the regime pipeline. c, events and m may be nil.
func NewRegimeUseCase(
	quotes *QuoteFetcher,
	model domsvc.RegimeModel,
	p *pool.Pool,
	c cache.Service,
	events domrepo.EventPublisher,
	m domrepo.Metrics,
	cfg *config.Config,
	l *logger.Logger,
) *RegimeUseCase {
	if l == nil {
		l = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	uc := &RegimeUseCase{
		quotes:         quotes,
		model:          model,
		pool:           p,
		events:         events,
		metrics:        m,
		log:            l.With(logger.String("component", "regimes")),
		ttl:            cfg.Cache.TTL,
		defaultRegimes: cfg.Regime.DefaultRegimes,
		maxRegimes:     cfg.Regime.MaxRegimes,
		features:       models.FeatureSet(cfg.Regime.Features),
	}
	if cfg.Cache.Enabled {
		uc.cache = c
	}
	return uc
}

// DefaultRegimes is the regime count used when a request omits n_regimes.
func (uc *RegimeUseCase) DefaultRegimes() int { return uc.defaultRegimes }

// DetectRegimes serves GET /regimes.
func (uc *RegimeUseCase) DetectRegimes(ctx context.Context, req models.RegimeRequest) (*models.RegimeResult, error) {
	q, err := uc.quotes.ParseQuery(req.Symbol, req.StartDate, req.EndDate, req.Granularity)
	if err != nil {
		return nil, err
	}
	return uc.Detect(ctx, q, req.NRegimes)
}

// Detect fits nRegimes regimes to the bars of q.
func (uc *RegimeUseCase) Detect(ctx context.Context, q models.SymbolQuery, nRegimes int) (*models.RegimeResult, error) {
	if nRegimes < 1 || nRegimes > uc.maxRegimes {
		return nil, models.Errorf(models.ErrInvalidParameter, "n_regimes must be between 1 and %d, got %d", uc.maxRegimes, nRegimes)
	}

	key := cache.GenerateKeyWithParams(regimesCacheKind, q.Symbol, util.FormatDate(q.Start), util.FormatDate(q.End),
		q.Granularity, nRegimes, uc.features)
	if uc.cache != nil {
		var cached models.RegimeResult
		err := uc.cache.Get(ctx, key, &cached)
		uc.metrics.RecordCache(regimesCacheKind, err == nil)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			uc.log.Warn("regime cache read failed", logger.String("key", key), logger.Error(err))
		}
	}

	bars, err := uc.quotes.FetchBars(ctx, q)
	if err != nil {
		return nil, err
	}

	var res *models.RegimeResult
	start := time.Now()
	err = uc.pool.Do(ctx, func(ctx context.Context) error {
		var ferr error
		res, ferr = uc.model.FitRegimes(ctx, bars, nRegimes)
		return ferr
	})
	if err != nil {
		var de *models.Error
		if !errors.As(err, &de) && ctx.Err() != nil {
			err = models.Wrap(models.ErrCanceled, err, "regime fit canceled")
		}
		uc.metrics.RecordError(string(models.KindOf(err)))
		return nil, err
	}
	elapsed := time.Since(start)
	uc.metrics.RecordFit(nRegimes, res.Iterations, res.Converged, elapsed.Seconds())

	res.Symbol = q.Symbol
	res.Granularity = q.Granularity
	res.StartDate = util.FormatDate(q.Start)
	res.EndDate = util.FormatDate(q.End)
	perYear := q.Granularity.BarsPerYear()
	for i := range res.Parameters.States {
		st := &res.Parameters.States[i]
		if len(st.Variance) > 0 {
			st.AnnualizedVolatility = features.AnnualizedVolatility(st.Variance[0], perYear)
		}
	}

	uc.log.Info("regimes fitted",
		logger.String("symbol", q.Symbol),
		logger.String("granularity", q.Granularity.Name()),
		logger.Int("n_regimes", nRegimes),
		logger.Int("bars", len(bars)),
		logger.Int("iterations", res.Iterations),
		logger.Bool("converged", res.Converged),
		logger.Duration("duration_ms", elapsed),
	)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, res, uc.ttl); err != nil {
			uc.log.Warn("regime cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	uc.publish(ctx, res)
	return res, nil
}

// InvalidateSymbol drops cached bars and regime results for symbol.
func (uc *RegimeUseCase) InvalidateSymbol(ctx context.Context, symbol string) error {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if !uc.quotes.registry.IsValid(sym) {
		return models.Errorf(models.ErrUnknownSymbol, "unknown symbol %q", symbol)
	}
	if err := uc.quotes.Invalidate(ctx, sym); err != nil {
		return err
	}
	if uc.cache == nil {
		return nil
	}
	return uc.cache.DeleteByPattern(ctx, cache.BuildPattern(cache.GenerateKeyWithParams(regimesCacheKind, sym)+":"))
}

func (uc *RegimeUseCase) publish(ctx context.Context, res *models.RegimeResult) {
	if uc.events == nil {
		return
	}
	ev := &models.RegimeComputedEvent{
		ID:            uuid.NewString(),
		Symbol:        res.Symbol,
		Granularity:   res.Granularity,
		StartDate:     res.StartDate,
		EndDate:       res.EndDate,
		NRegimes:      res.NRegimes,
		CurrentState:  res.Current.State,
		CurrentLabel:  res.Current.Label,
		LogLikelihood: res.LogLikelihood,
		Converged:     res.Converged,
		Observations:  len(res.RegimeSequence),
		ComputedAt:    time.Now().UTC(),
	}
	if err := uc.events.PublishRegimeComputed(ctx, ev); err != nil {
		uc.log.Warn("publish regime event failed", logger.String("symbol", res.Symbol), logger.Error(err))
	}
}
