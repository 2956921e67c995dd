package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"RegimeAPI/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	calls int
	err   error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) GetBars(context.Context, string, time.Time, time.Time, models.Granularity) ([]models.Bar, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []models.Bar{{Close: 1}}, nil
}

func TestBreakerOpensOnUpstreamFailures(t *testing.T) {
	stub := &stubSource{err: models.Wrap(models.ErrProviderUnavailable, errors.New("503"), "upstream")}
	b := New(stub, Settings{ConsecutiveFailures: 2, Timeout: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.GetBars(ctx, "AAPL", time.Time{}, time.Time{}, models.OneDay)
		assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	}
	assert.Equal(t, "open", b.State())
	assert.ErrorIs(t, b.Ping(ctx), models.ErrProviderUnavailable)

	_, err := b.GetBars(ctx, "AAPL", time.Time{}, time.Time{}, models.OneDay)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.Equal(t, 2, stub.calls, "open breaker must not reach the source")
}

func TestBreakerOpensOnTimeouts(t *testing.T) {
	stub := &stubSource{err: context.DeadlineExceeded}
	b := New(stub, Settings{ConsecutiveFailures: 2, Timeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := b.GetBars(context.Background(), "AAPL", time.Time{}, time.Time{}, models.OneDay)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, "open", b.State())
}

func TestBreakerIgnoresCallerCancel(t *testing.T) {
	stub := &stubSource{err: context.Canceled}
	b := New(stub, Settings{ConsecutiveFailures: 1, Timeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.GetBars(context.Background(), "AAPL", time.Time{}, time.Time{}, models.OneDay)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, 3, stub.calls)
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	stub := &stubSource{err: models.ErrNotFound}
	b := New(stub, Settings{ConsecutiveFailures: 1, Timeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.GetBars(context.Background(), "AAPL", time.Time{}, time.Time{}, models.OneDay)
		assert.ErrorIs(t, err, models.ErrNotFound)
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, 3, stub.calls)
}

func TestBreakerPassesBars(t *testing.T) {
	b := New(&stubSource{}, Settings{}, nil)
	bars, err := b.GetBars(context.Background(), "AAPL", time.Time{}, time.Time{}, models.OneDay)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}
