package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	"RegimeAPI/internal/domain/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	req  marketdata.GetBarsRequest
	bars []marketdata.Bar
	err  error
}

func (f *fakeClient) GetBars(_ string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.req = req
	return f.bars, f.err
}

type hangingClient struct{ release chan struct{} }

func (h hangingClient) GetBars(string, marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	<-h.release
	return nil, nil
}

func TestGetBars(t *testing.T) {
	d0 := time.Date(2020, 1, 2, 5, 0, 0, 0, time.UTC)
	fc := &fakeClient{bars: []marketdata.Bar{
		{Timestamp: d0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
	}}
	src := NewWithClient(fc, "iex", nil)

	bars, err := src.GetBars(context.Background(), "AAPL", d0, d0.AddDate(0, 0, 1), models.FifteenMinutes)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Equal(t, 100.0, bars[0].Volume)
	assert.Equal(t, marketdata.NewTimeFrame(15, marketdata.Min), fc.req.TimeFrame)
	assert.EqualValues(t, "iex", fc.req.Feed)
}

func TestGetBarsUpstreamError(t *testing.T) {
	src := NewWithClient(&fakeClient{err: errors.New("429 too many requests")}, "", nil)
	_, err := src.GetBars(context.Background(), "AAPL", time.Now().AddDate(0, 0, -3), time.Now(), models.OneDay)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestTimeFrameRejectsUnknown(t *testing.T) {
	_, err := TimeFrame(models.Granularity("3d"))
	assert.ErrorIs(t, err, models.ErrInvalidGranularity)
}

func TestGetBarsStopsWaitingOnDeadline(t *testing.T) {
	hc := hangingClient{release: make(chan struct{})}
	defer close(hc.release)
	src := NewWithClient(hc, "", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := src.GetBars(ctx, "AAPL", time.Now().AddDate(0, 0, -3), time.Now(), models.OneDay)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClientOptsCarryTimeout(t *testing.T) {
	opts := clientOpts(Config{APIKey: "k", APISecret: "s", Timeout: 5 * time.Second})
	require.NotNil(t, opts.HTTPClient)
	assert.Equal(t, 5*time.Second, opts.HTTPClient.Timeout)

	assert.Nil(t, clientOpts(Config{}).HTTPClient)
}
