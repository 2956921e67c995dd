// Package alpaca serves historical bars from the Alpaca market data API.
package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"
	applogger "RegimeAPI/pkg/logger"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// BarsGetter is satisfied by *marketdata.Client.
type BarsGetter interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Feed      string
	// Timeout bounds each HTTP request made by the marketdata client.
	Timeout time.Duration
}

// Source implements BarSource on Alpaca historical bars.
type Source struct {
	client BarsGetter
	feed   string
	l      *applogger.Logger
}

func New(cfg Config, l *applogger.Logger) *Source {
	return NewWithClient(marketdata.NewClient(clientOpts(cfg)), cfg.Feed, l)
}

func clientOpts(cfg Config) marketdata.ClientOpts {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		opts.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return opts
}

func NewWithClient(c BarsGetter, feed string, l *applogger.Logger) *Source {
	if l == nil {
		l = applogger.Nop()
	}
	return &Source{client: c, feed: feed, l: l}
}

func (s *Source) Name() string { return "alpaca" }

// TimeFrame maps a granularity to Alpaca's bar timeframe.
func TimeFrame(g models.Granularity) (marketdata.TimeFrame, error) {
	switch g {
	case models.OneMinute:
		return marketdata.OneMin, nil
	case models.FiveMinutes:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case models.FifteenMinutes:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case models.ThirtyMinutes:
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case models.OneHour:
		return marketdata.OneHour, nil
	case models.OneDay:
		return marketdata.OneDay, nil
	case models.OneWeek:
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	case models.OneMonth:
		return marketdata.NewTimeFrame(1, marketdata.Month), nil
	default:
		return marketdata.TimeFrame{}, models.Errorf(models.ErrInvalidGranularity, "unsupported granularity %q", g)
	}
}

func (s *Source) GetBars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.Bar, error) {
	tf, err := TimeFrame(g)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     from.UTC(),
		End:       to.UTC(),
	}
	if s.feed != "" {
		req.Feed = marketdata.Feed(s.feed)
	}

	raw, err := s.getBars(ctx, symbol, req)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		s.l.Warn("alpaca get_bars error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, models.Wrap(models.ErrProviderUnavailable, err, fmt.Sprintf("alpaca bars %s", symbol))
	}

	out := make([]models.Bar, 0, len(raw))
	for _, b := range raw {
		out = append(out, models.Bar{
			Timestamp: b.Timestamp.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
		})
	}
	return out, nil
}

type barsResult struct {
	bars []marketdata.Bar
	err  error
}

// getBars runs the context-free client call so the caller can stop waiting on ctx.
// The abandoned request is still bounded by the HTTP client timeout.
func (s *Source) getBars(ctx context.Context, symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	done := make(chan barsResult, 1)
	go func() {
		bars, err := s.client.GetBars(symbol, req)
		done <- barsResult{bars: bars, err: err}
	}()

	select {
	case r := <-done:
		return r.bars, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ domrepo.BarSource = (*Source)(nil)
