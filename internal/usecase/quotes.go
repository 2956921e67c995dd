package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"
	"RegimeAPI/internal/services/features"
	"RegimeAPI/pkg/cache"
	"RegimeAPI/pkg/config"
	"RegimeAPI/pkg/logger"
	"RegimeAPI/pkg/metrics"
	"RegimeAPI/pkg/util"
)

const barsCacheKind = "bars"

// QuoteFetcher validates symbol queries and loads normalized bar series from a BarSource.
type QuoteFetcher struct {
	source   domrepo.BarSource
	registry domrepo.SymbolRegistry
	cache    cache.Service
	metrics  domrepo.Metrics
	log      *logger.Logger

	timeout time.Duration
	retries int
	backoff time.Duration
	barsTTL time.Duration
}

// NewQuoteFetcher builds a fetcher. c and m may be nil.
func NewQuoteFetcher(source domrepo.BarSource, registry domrepo.SymbolRegistry, c cache.Service, m domrepo.Metrics, cfg *config.Config, l *logger.Logger) *QuoteFetcher {
	if l == nil {
		l = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	f := &QuoteFetcher{
		source:   source,
		registry: registry,
		metrics:  m,
		log:      l.With(logger.String("component", "quotes")),
		timeout:  cfg.Provider.Timeout,
		retries:  cfg.Provider.Retries,
		backoff:  cfg.Provider.RetryBackoff,
		barsTTL:  cfg.Cache.BarsTTL,
	}
	if cfg.Cache.Enabled {
		f.cache = c
	}
	return f
}

// ParseQuery turns raw request fields into a validated SymbolQuery.
func (f *QuoteFetcher) ParseQuery(symbol, startDate, endDate, granularity string) (models.SymbolQuery, error) {
	var q models.SymbolQuery

	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if !f.registry.IsValid(sym) {
		return q, models.Errorf(models.ErrUnknownSymbol, "unknown symbol %q", symbol)
	}
	g, err := models.ParseGranularity(granularity)
	if err != nil {
		return q, err
	}
	start, ok := util.ParseTime(startDate)
	if !ok {
		return q, models.Errorf(models.ErrInvalidDate, "start_date %q is not a valid date", startDate)
	}
	end, ok := util.ParseTime(endDate)
	if !ok {
		return q, models.Errorf(models.ErrInvalidDate, "end_date %q is not a valid date", endDate)
	}
	if start.After(end) {
		return q, models.Errorf(models.ErrInvalidRange, "start_date %s is after end_date %s", startDate, endDate)
	}

	return models.SymbolQuery{Symbol: sym, Start: start, End: end, Granularity: g}, nil
}

// GetSeries serves GET /data: validation, fetch, and the echoed request fields.
func (f *QuoteFetcher) GetSeries(ctx context.Context, req models.DataRequest) (*models.BarSeries, error) {
	q, err := f.ParseQuery(req.Symbol, req.StartDate, req.EndDate, req.Granularity)
	if err != nil {
		return nil, err
	}
	bars, err := f.FetchBars(ctx, q)
	if err != nil {
		return nil, err
	}
	return &models.BarSeries{
		Symbol:      q.Symbol,
		StartDate:   util.FormatDate(q.Start),
		EndDate:     util.FormatDate(q.End),
		Granularity: q.Granularity,
		Count:       len(bars),
		Bars:        bars,
	}, nil
}

// FetchBars returns bars in [q.Start, q.End+1d), ascending and unique by timestamp.
// Zero bars is reported as models.ErrNotFound.
func (f *QuoteFetcher) FetchBars(ctx context.Context, q models.SymbolQuery) ([]models.Bar, error) {
	if q.Start.After(q.End) {
		return nil, models.Errorf(models.ErrInvalidRange, "start %s is after end %s", util.FormatDate(q.Start), util.FormatDate(q.End))
	}

	key := barsKey(q)
	if f.cache != nil {
		var cached []models.Bar
		err := f.cache.Get(ctx, key, &cached)
		f.metrics.RecordCache(barsCacheKind, err == nil)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.log.Warn("bars cache read failed", logger.String("key", key), logger.Error(err))
		}
	}

	from, to := features.AlignFromTo(q.Start, q.ProviderEnd(), q.Granularity)
	start := time.Now()
	raw, err := f.fetchWithRetry(ctx, q.Symbol, from, to, q.Granularity)
	if err != nil {
		f.metrics.RecordError(string(models.KindOf(err)))
		return nil, err
	}
	bars := NormalizeBars(raw, from, to)
	f.metrics.RecordFetch(f.source.Name(), len(bars), time.Since(start).Seconds())

	if len(bars) == 0 {
		f.metrics.RecordError(string(models.KindNotFound))
		return nil, models.Errorf(models.ErrNotFound, "no %s bars for %s between %s and %s",
			q.Granularity.Name(), q.Symbol, util.FormatDate(q.Start), util.FormatDate(q.End))
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, bars, f.barsTTL); err != nil {
			f.log.Warn("bars cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return bars, nil
}

// Invalidate drops every cached bar series for symbol.
func (f *QuoteFetcher) Invalidate(ctx context.Context, symbol string) error {
	if f.cache == nil {
		return nil
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	return f.cache.DeleteByPattern(ctx, cache.BuildPattern(cache.GenerateKeyWithParams(barsCacheKind, sym)+":"))
}

func (f *QuoteFetcher) fetchWithRetry(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.Bar, error) {
	var (
		bars []models.Bar
		err  error
	)
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.log.Warn("retrying bar fetch",
				logger.String("source", f.source.Name()),
				logger.String("symbol", symbol),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			select {
			case <-time.After(time.Duration(attempt) * f.backoff):
			case <-ctx.Done():
				return nil, models.Wrap(models.ErrCanceled, ctx.Err(), "bar fetch canceled")
			}
		}

		bars, err = f.getBars(ctx, symbol, from, to, g)
		if err == nil {
			return bars, nil
		}
		if ctx.Err() != nil {
			return nil, models.Wrap(models.ErrCanceled, ctx.Err(), "bar fetch canceled")
		}
		if !models.IsRetryable(err) {
			break
		}
	}

	var de *models.Error
	if errors.As(err, &de) {
		return nil, err
	}
	return nil, models.Wrap(models.ErrProviderUnavailable, err, "fetch bars from "+f.source.Name())
}

// getBars bounds a single provider call by the configured timeout. A call that runs out
// of its own budget while the caller is still waiting counts as an upstream failure.
func (f *QuoteFetcher) getBars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.Bar, error) {
	if f.timeout <= 0 {
		return f.source.GetBars(ctx, symbol, from, to, g)
	}
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	bars, err := f.source.GetBars(callCtx, symbol, from, to, g)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !models.IsRetryable(err) {
		return nil, models.Wrap(models.ErrProviderUnavailable, err,
			fmt.Sprintf("%s timed out after %s", f.source.Name(), f.timeout))
	}
	return bars, err
}

// NormalizeBars drops bars with a non-positive close, sorts ascending, keeps the last
// bar for duplicate timestamps, and trims to [from, to).
func NormalizeBars(in []models.Bar, from, to time.Time) []models.Bar {
	out := make([]models.Bar, 0, len(in))
	for _, b := range in {
		if b.Close <= 0 || b.Timestamp.Before(from) || !b.Timestamp.Before(to) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Timestamp.Equal(out[i].Timestamp) {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

func barsKey(q models.SymbolQuery) string {
	return cache.GenerateKeyWithParams(barsCacheKind, q.Symbol, util.FormatDate(q.Start), util.FormatDate(q.End), q.Granularity)
}
