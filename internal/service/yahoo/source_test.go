package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	"RegimeAPI/internal/domain/models"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIter struct {
	bars []*finance.ChartBar
	i    int
	err  error
}

func (f *fakeIter) Next() bool {
	if f.i >= len(f.bars) {
		return false
	}
	f.i++
	return true
}

func (f *fakeIter) Bar() *finance.ChartBar { return f.bars[f.i-1] }
func (f *fakeIter) Err() error             { return f.err }

func chartBar(ts time.Time, close string) *finance.ChartBar {
	c := decimal.RequireFromString(close)
	return &finance.ChartBar{
		Open:      c,
		High:      c.Add(decimal.NewFromInt(1)),
		Low:       c.Sub(decimal.NewFromInt(1)),
		Close:     c,
		Volume:    1000,
		Timestamp: int(ts.Unix()),
	}
}

func TestGetBarsConvertsChartBars(t *testing.T) {
	d0 := time.Date(2020, 1, 2, 14, 30, 0, 0, time.UTC)
	var got *chart.Params
	src := New(WithChartFunc(func(p *chart.Params) BarIter {
		got = p
		return &fakeIter{bars: []*finance.ChartBar{chartBar(d0, "300.35"), chartBar(d0.AddDate(0, 0, 1), "297.43")}}
	}))

	bars, err := src.GetBars(context.Background(), "AAPL", d0, d0.AddDate(0, 0, 2), models.OneDay)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, d0, bars[0].Timestamp)
	assert.InDelta(t, 300.35, bars[0].Close, 1e-9)
	assert.InDelta(t, 298.43, bars[1].High, 1e-9)
	assert.Equal(t, 1000.0, bars[1].Volume)

	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.EqualValues(t, "1d", got.Interval)
}

func TestGetBarsMapsErrors(t *testing.T) {
	src := New(WithChartFunc(func(*chart.Params) BarIter {
		return &fakeIter{err: errors.New("remote-error: No data found, symbol may be delisted")}
	}))
	_, err := src.GetBars(context.Background(), "AAPL", time.Now().AddDate(0, 0, -5), time.Now(), models.OneDay)
	assert.ErrorIs(t, err, models.ErrNotFound)

	src = New(WithChartFunc(func(*chart.Params) BarIter {
		return &fakeIter{err: errors.New("dial tcp: i/o timeout")}
	}))
	_, err = src.GetBars(context.Background(), "AAPL", time.Now().AddDate(0, 0, -5), time.Now(), models.OneDay)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestIntervalMapping(t *testing.T) {
	iv, err := interval(models.OneHour)
	require.NoError(t, err)
	assert.EqualValues(t, "60m", iv)

	iv, err = interval(models.OneWeek)
	require.NoError(t, err)
	assert.EqualValues(t, "1wk", iv)
}
