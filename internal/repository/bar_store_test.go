package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"RegimeAPI/internal/domain/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCHBarsQueryIntervals(t *testing.T) {
	q, err := chBarsQuery("market.bars", models.FifteenMinutes)
	require.NoError(t, err)
	assert.Contains(t, q, "INTERVAL 15 MINUTE")
	assert.Contains(t, q, "FROM market.bars")
	assert.Contains(t, q, "ts >= ? AND ts < ?")

	q, err = chBarsQuery("bars", models.OneMonth)
	require.NoError(t, err)
	assert.Contains(t, q, "INTERVAL 1 MONTH")

	_, err = chBarsQuery("bars", models.Granularity("2d"))
	assert.ErrorIs(t, err, models.ErrInvalidGranularity)
}

func TestPGBarsQuery(t *testing.T) {
	q, err := pgBarsQuery("bars", models.FiveMinutes)
	require.NoError(t, err)
	assert.Contains(t, q, "date_bin('300 seconds'")
	assert.Contains(t, q, `FROM "bars"`)

	q, err = pgBarsQuery("market.bars", models.OneDay)
	require.NoError(t, err)
	assert.Contains(t, q, `FROM "market"."bars"`)

	q, err = pgBarsQuery("bars", models.OneWeek)
	require.NoError(t, err)
	assert.Contains(t, q, "date_trunc('week'")
}

type failingQuerier struct{ err error }

func (f failingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.err
}

func TestPGBarStoreMapsQueryErrors(t *testing.T) {
	s := NewPGBarStore(failingQuerier{err: errors.New("connection refused")}, "bars")
	_, err := s.GetBars(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now(), models.OneDay)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
}
