package repository

import (
	"context"

	"RegimeAPI/internal/domain/models"
)

// SymbolRegistry is the immutable set of tradable tickers.
type SymbolRegistry interface {
	IsValid(symbol string) bool
	List() []string
}

// EventPublisher emits domain events to a message bus.
type EventPublisher interface {
	PublishRegimeComputed(ctx context.Context, ev *models.RegimeComputedEvent) error
	Close() error
}

type Metrics interface {
	RecordFetch(source string, bars int, seconds float64)
	RecordFit(nRegimes, iterations int, converged bool, seconds float64)
	RecordCache(kind string, hit bool)
	RecordError(kind string)
}
