package repository

import (
	"context"
	"time"

	"RegimeAPI/internal/domain/models"
)

// BarSource provides historical OHLCV bars from a market-data backend.
// The range is half-open: [from, to). An empty result or models.ErrNotFound both mean
// no data; transport failures are reported as models.ErrProviderUnavailable.
type BarSource interface {
	Name() string
	GetBars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.Bar, error)
}
