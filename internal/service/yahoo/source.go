// Package yahoo serves historical bars from Yahoo Finance charts.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"
	applogger "RegimeAPI/pkg/logger"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// BarIter is the subset of *chart.Iter the source consumes.
type BarIter interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

type ChartFunc func(*chart.Params) BarIter

// Source implements BarSource using the finance-go chart endpoint.
type Source struct {
	chart ChartFunc
	l     *applogger.Logger
}

type Option func(*Source)

// WithChartFunc replaces the chart fetcher.
func WithChartFunc(f ChartFunc) Option {
	return func(s *Source) { s.chart = f }
}

func WithLogger(l *applogger.Logger) Option {
	return func(s *Source) { s.l = l }
}

func New(opts ...Option) *Source {
	s := &Source{
		chart: func(p *chart.Params) BarIter { return chart.Get(p) },
		l:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string { return "yahoo" }

func interval(g models.Granularity) (datetime.Interval, error) {
	switch g {
	case models.OneMinute, models.FiveMinutes, models.FifteenMinutes, models.ThirtyMinutes,
		models.OneDay, models.OneWeek, models.OneMonth:
		return datetime.Interval(g.String()), nil
	case models.OneHour:
		return datetime.Interval("60m"), nil
	default:
		return "", models.Errorf(models.ErrInvalidGranularity, "unsupported granularity %q", g)
	}
}

func (s *Source) GetBars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.Bar, error) {
	iv, err := interval(g)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start, end := from.UTC(), to.UTC()
	p := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: iv,
	}
	p.Context = &ctx

	iter := s.chart(p)
	var out []models.Bar
	for iter.Next() {
		b := iter.Bar()
		if b == nil {
			continue
		}
		out = append(out, models.Bar{
			Timestamp: time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:      b.Open.InexactFloat64(),
			High:      b.High.InexactFloat64(),
			Low:       b.Low.InexactFloat64(),
			Close:     b.Close.InexactFloat64(),
			Volume:    float64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isNoData(err) {
			return nil, models.Errorf(models.ErrNotFound, "no data for %s", symbol)
		}
		s.l.Warn("yahoo chart error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, models.Wrap(models.ErrProviderUnavailable, err, fmt.Sprintf("yahoo chart %s", symbol))
	}
	return out, nil
}

func isNoData(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no data") || strings.Contains(msg, "not found")
}

var _ domrepo.BarSource = (*Source)(nil)
