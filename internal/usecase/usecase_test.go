package usecase

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"
	"RegimeAPI/internal/repository"
	"RegimeAPI/internal/services/analytics"
	"RegimeAPI/pkg/cache"
	"RegimeAPI/pkg/config"
	"RegimeAPI/pkg/pool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	bars  []models.Bar
	errs  []error
	// stalls is the number of leading calls that hang until their context ends.
	stalls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) GetBars(ctx context.Context, _ string, from, to time.Time, _ models.Granularity) ([]models.Bar, error) {
	f.mu.Lock()
	f.calls++
	stall := f.stalls > 0
	if stall {
		f.stalls--
	}
	f.mu.Unlock()
	if stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	var out []models.Bar
	for _, b := range f.bars {
		if !b.Timestamp.Before(from) && b.Timestamp.Before(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*models.RegimeComputedEvent
}

func (p *capturePublisher) PublishRegimeComputed(_ context.Context, ev *models.RegimeComputedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var (
	jan1  = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	oct31 = time.Date(2020, 10, 31, 0, 0, 0, 0, time.UTC)
)

func weekdayBars(from, to time.Time) []models.Bar {
	rng := rand.New(rand.NewPCG(3, 3))
	var out []models.Bar
	price := 75.0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		sigma := 0.01
		if len(out)%60 >= 30 {
			sigma = 0.035
		}
		next := price * math.Exp(0.0005+sigma*rng.NormFloat64())
		out = append(out, models.Bar{
			Timestamp: d,
			Open:      price,
			High:      math.Max(price, next) * 1.004,
			Low:       math.Min(price, next) * 0.996,
			Close:     next,
			Volume:    2e7,
		})
		price = next
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Provider.RetryBackoff = time.Millisecond
	return cfg
}

func newFetcher(t *testing.T, src *fakeSource, cfg *config.Config) (*QuoteFetcher, cache.Service) {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	return NewQuoteFetcher(src, repository.NewSymbolRegistry(cfg.Symbols), c, nil, cfg, nil), c
}

func TestParseQuery(t *testing.T) {
	f, _ := newFetcher(t, &fakeSource{}, testConfig())

	q, err := f.ParseQuery(" aapl", "2020-01-01", "2020-10-31", "")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, models.OneDay, q.Granularity)
	assert.Equal(t, jan1, q.Start)
	assert.Equal(t, oct31, q.End)

	tests := []struct {
		name                     string
		symbol, start, end, gran string
		want                     *models.Error
	}{
		{"unknown symbol", "ZZZZ", "2020-01-01", "2020-10-31", "1d", models.ErrUnknownSymbol},
		{"inverted range", "AAPL", "2020-10-31", "2020-01-01", "1d", models.ErrInvalidRange},
		{"bad start", "AAPL", "01/01/2020", "2020-10-31", "1d", models.ErrInvalidDate},
		{"bad granularity", "AAPL", "2020-01-01", "2020-10-31", "TWO_DAYS", models.ErrInvalidGranularity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseQuery(tt.symbol, tt.start, tt.end, tt.gran)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, models.KindValidation, models.KindOf(err))
		})
	}
}

func TestNormalizeBars(t *testing.T) {
	ts := func(d int) time.Time { return jan1.AddDate(0, 0, d) }
	in := []models.Bar{
		{Timestamp: ts(3), Close: 3},
		{Timestamp: ts(1), Close: 1},
		{Timestamp: ts(2), Close: 0},
		{Timestamp: ts(1), Close: 1.5},
		{Timestamp: ts(-1), Close: 9},
		{Timestamp: ts(10), Close: 9},
	}
	got := NormalizeBars(in, jan1, ts(10))
	require.Len(t, got, 2)
	assert.Equal(t, ts(1), got[0].Timestamp)
	assert.Equal(t, 1.5, got[0].Close, "last duplicate wins")
	assert.Equal(t, ts(3), got[1].Timestamp)
}

func TestFetchBarsEndIsInclusive(t *testing.T) {
	src := &fakeSource{bars: weekdayBars(jan1, oct31.AddDate(0, 1, 0))}
	f, _ := newFetcher(t, src, testConfig())

	q, err := f.ParseQuery("AAPL", "2020-01-01", "2020-10-30", "1d")
	require.NoError(t, err)
	bars, err := f.FetchBars(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 10, 30, 0, 0, 0, 0, time.UTC), bars[len(bars)-1].Timestamp)
}

func TestFetchBarsEmptyIsNotFound(t *testing.T) {
	src := &fakeSource{}
	f, _ := newFetcher(t, src, testConfig())

	q, _ := f.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	_, err := f.FetchBars(context.Background(), q)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 1, src.Calls())
}

func TestFetchBarsRetriesUpstreamOnce(t *testing.T) {
	src := &fakeSource{
		bars: weekdayBars(jan1, oct31),
		errs: []error{models.Errorf(models.ErrProviderUnavailable, "timeout")},
	}
	f, _ := newFetcher(t, src, testConfig())

	q, _ := f.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	bars, err := f.FetchBars(context.Background(), q)
	require.NoError(t, err)
	assert.NotEmpty(t, bars)
	assert.Equal(t, 2, src.Calls())
}

func TestFetchBarsRetriesTimedOutCall(t *testing.T) {
	src := &fakeSource{bars: weekdayBars(jan1, oct31), stalls: 1}
	cfg := testConfig()
	cfg.Provider.Timeout = 20 * time.Millisecond
	f, _ := newFetcher(t, src, cfg)

	q, _ := f.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	bars, err := f.FetchBars(context.Background(), q)
	require.NoError(t, err)
	assert.NotEmpty(t, bars)
	assert.Equal(t, 2, src.Calls())
}

func TestFetchBarsTimeoutSurfacesUpstream(t *testing.T) {
	src := &fakeSource{bars: weekdayBars(jan1, oct31), stalls: 2}
	cfg := testConfig()
	cfg.Provider.Timeout = 20 * time.Millisecond
	f, _ := newFetcher(t, src, cfg)

	q, _ := f.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	_, err := f.FetchBars(context.Background(), q)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, src.Calls())
}

func TestFetchBarsGivesUpAfterRetry(t *testing.T) {
	src := &fakeSource{errs: []error{errors.New("dial tcp: refused"), errors.New("dial tcp: refused")}}
	f, _ := newFetcher(t, src, testConfig())

	q, _ := f.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	_, err := f.FetchBars(context.Background(), q)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.Equal(t, 1, src.Calls(), "unclassified errors are not retried")

	src = &fakeSource{errs: []error{
		models.Errorf(models.ErrProviderUnavailable, "503"),
		models.Errorf(models.ErrProviderUnavailable, "503"),
	}}
	f, _ = newFetcher(t, src, testConfig())
	_, err = f.FetchBars(context.Background(), q)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.Equal(t, 2, src.Calls())
}

func TestFetchBarsNotFoundIsNotRetried(t *testing.T) {
	src := &fakeSource{errs: []error{models.Errorf(models.ErrNotFound, "delisted")}}
	f, _ := newFetcher(t, src, testConfig())

	q, _ := f.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	_, err := f.FetchBars(context.Background(), q)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 1, src.Calls())
}

func TestFetchBarsUsesCache(t *testing.T) {
	src := &fakeSource{bars: weekdayBars(jan1, oct31)}
	f, _ := newFetcher(t, src, testConfig())
	ctx := context.Background()

	q, _ := f.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	first, err := f.FetchBars(ctx, q)
	require.NoError(t, err)
	second, err := f.FetchBars(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, 1, src.Calls())

	require.NoError(t, f.Invalidate(ctx, "aapl"))
	_, err = f.FetchBars(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls())
}

func newRegimes(t *testing.T, src *fakeSource, cfg *config.Config, events domrepo.EventPublisher) *RegimeUseCase {
	t.Helper()
	f, c := newFetcher(t, src, cfg)
	return NewRegimeUseCase(f, analytics.NewHMMRegimeDetector(cfg, nil), pool.New(2), c, events, nil, cfg, nil)
}

func TestDetectRegimesDailyScenario(t *testing.T) {
	bars := weekdayBars(jan1, oct31)
	pub := &capturePublisher{}
	uc := newRegimes(t, &fakeSource{bars: bars}, testConfig(), pub)

	res, err := uc.DetectRegimes(context.Background(), models.RegimeRequest{
		Symbol: "AAPL", StartDate: "2020-01-01", EndDate: "2020-10-31", Granularity: "ONE_DAY", NRegimes: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, "2020-01-01", res.StartDate)
	assert.Equal(t, "2020-10-31", res.EndDate)
	assert.Equal(t, models.OneDay, res.Granularity)
	require.Len(t, res.RegimeSequence, len(bars)-1)
	for i, p := range res.RegimeSequence {
		assert.Equal(t, bars[i+1].Timestamp, p.Timestamp)
		assert.True(t, p.State >= 0 && p.State < 3)
	}
	require.Len(t, res.Parameters.States, 3)
	for i := 1; i < 3; i++ {
		assert.LessOrEqual(t, res.Parameters.States[i-1].Mean[0], res.Parameters.States[i].Mean[0])
	}
	for _, st := range res.Parameters.States {
		assert.Greater(t, st.AnnualizedVolatility, 0.0)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.events, 1)
	assert.Equal(t, "AAPL", pub.events[0].Symbol)
	assert.NotEmpty(t, pub.events[0].ID)
	assert.Equal(t, len(bars)-1, pub.events[0].Observations)
}

func TestDetectRegimesCachesResult(t *testing.T) {
	src := &fakeSource{bars: weekdayBars(jan1, oct31)}
	uc := newRegimes(t, src, testConfig(), nil)
	ctx := context.Background()
	q, err := uc.quotes.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	require.NoError(t, err)

	first, err := uc.Detect(ctx, q, 2)
	require.NoError(t, err)
	second, err := uc.Detect(ctx, q, 2)
	require.NoError(t, err)
	assert.Equal(t, first.LogLikelihood, second.LogLikelihood)
	assert.Equal(t, first.RegimeSequence, second.RegimeSequence)
	assert.Equal(t, 1, src.Calls())

	require.NoError(t, uc.InvalidateSymbol(ctx, "AAPL"))
	_, err = uc.Detect(ctx, q, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls())
}

func TestDetectRegimesRejectsBadInput(t *testing.T) {
	src := &fakeSource{bars: weekdayBars(jan1, oct31)}
	uc := newRegimes(t, src, testConfig(), nil)
	ctx := context.Background()

	_, err := uc.DetectRegimes(ctx, models.RegimeRequest{Symbol: "AAPL", StartDate: "2020-01-01", EndDate: "2020-10-31", NRegimes: 0})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = uc.DetectRegimes(ctx, models.RegimeRequest{Symbol: "AAPL", StartDate: "2020-01-01", EndDate: "2020-10-31", NRegimes: 11})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = uc.DetectRegimes(ctx, models.RegimeRequest{Symbol: "ZZZZ", StartDate: "2020-01-01", EndDate: "2020-10-31", NRegimes: 3})
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)

	_, err = uc.DetectRegimes(ctx, models.RegimeRequest{Symbol: "AAPL", StartDate: "2020-10-31", EndDate: "2020-01-01", NRegimes: 3})
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	_, err = uc.DetectRegimes(ctx, models.RegimeRequest{Symbol: "AAPL", StartDate: "2020-01-01", EndDate: "2020-01-10", NRegimes: 3})
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	assert.Equal(t, 1, src.Calls(), "only the short range reached the source")
	assert.ErrorIs(t, uc.InvalidateSymbol(ctx, "ZZZZ"), models.ErrUnknownSymbol)
}

func TestDetectRegimesCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = false
	uc := newRegimes(t, &fakeSource{bars: weekdayBars(jan1, oct31)}, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	q, err := uc.quotes.ParseQuery("AAPL", "2020-01-01", "2020-10-31", "1d")
	require.NoError(t, err)
	cancel()

	_, err = uc.Detect(ctx, q, 3)
	require.Error(t, err)
	assert.Equal(t, models.KindCanceled, models.KindOf(err))
}
