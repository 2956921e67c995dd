package models

import "time"

// DataRequest binds GET /data/{symbol}.
type DataRequest struct {
	Symbol      string `param:"symbol" json:"symbol" validate:"required"`
	StartDate   string `query:"start_date" json:"start_date" validate:"required"`
	EndDate     string `query:"end_date" json:"end_date" validate:"required"`
	Granularity string `query:"granularity" json:"granularity" default:"ONE_DAY"`
}

// RegimeRequest binds GET /regimes/{symbol}. A missing n_regimes is filled by the handler
// from configuration; an explicit 0 reaches the use case and is rejected there.
type RegimeRequest struct {
	Symbol      string `param:"symbol" json:"symbol" validate:"required"`
	StartDate   string `query:"start_date" json:"start_date" validate:"required"`
	EndDate     string `query:"end_date" json:"end_date" validate:"required"`
	Granularity string `query:"granularity" json:"granularity" default:"ONE_DAY"`
	NRegimes    int    `query:"n_regimes" json:"n_regimes" validate:"omitempty,gte=1"`
}

// SymbolQuery is a validated request for a bar series. End is inclusive at day resolution.
type SymbolQuery struct {
	Symbol      string
	Start       time.Time
	End         time.Time
	Granularity Granularity
}

// ProviderEnd returns the exclusive upper bound passed to bar sources.
func (q SymbolQuery) ProviderEnd() time.Time {
	return q.End.AddDate(0, 0, 1)
}
