package service

import (
	"context"

	"RegimeAPI/internal/domain/models"
)

// RegimeModel fits a latent-regime model to a bar series and labels every bar after the first.
type RegimeModel interface {
	FitRegimes(ctx context.Context, bars []models.Bar, nRegimes int) (*models.RegimeResult, error)
}
