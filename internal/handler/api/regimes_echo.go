package api

import (
	"RegimeAPI/internal/domain/models"
	"RegimeAPI/internal/usecase"
	xhttp "RegimeAPI/pkg/http"
	xlogger "RegimeAPI/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler serves bar data and regime detection.
type MarketEchoHandler struct {
	logger  *xlogger.Logger
	quotes  *usecase.QuoteFetcher
	regimes *usecase.RegimeUseCase
}

func NewMarketEchoHandler(logger *xlogger.Logger, quotes *usecase.QuoteFetcher, regimes *usecase.RegimeUseCase) *MarketEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &MarketEchoHandler{logger: logger, quotes: quotes, regimes: regimes}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/data/:symbol", h.Data)
	e.GET("/regimes/:symbol", h.Regimes)
	e.DELETE("/cache/:symbol", h.InvalidateCache)
}

// Data returns the bars for a symbol and range, echoing the query.
// end_date is inclusive, unlike yfinance's history(end=...), so the bar dated end_date is returned.
func (h *MarketEchoHandler) Data(c echo.Context) error {
	req := &models.DataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return validationFailure(verr)
	}

	res, err := h.quotes.GetSeries(c.Request().Context(), *req)
	if err != nil {
		return h.fail("data", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Regimes fits the regime model for a symbol and range.
// end_date is inclusive, unlike yfinance's history(end=...).
func (h *MarketEchoHandler) Regimes(c echo.Context) error {
	req := &models.RegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return validationFailure(verr)
	}
	if c.QueryParam("n_regimes") == "" {
		req.NRegimes = h.regimes.DefaultRegimes()
	}

	res, err := h.regimes.DetectRegimes(c.Request().Context(), *req)
	if err != nil {
		return h.fail("regimes", req.Symbol, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

// InvalidateCache drops cached bars and regime results for a symbol.
func (h *MarketEchoHandler) InvalidateCache(c echo.Context) error {
	symbol := c.Param("symbol")
	if err := h.regimes.InvalidateSymbol(c.Request().Context(), symbol); err != nil {
		return h.fail("cache", symbol, err)
	}
	h.logger.Info("cache invalidated", xlogger.String("symbol", symbol))
	return xhttp.NoContentResponse(c)
}

func (h *MarketEchoHandler) fail(op, symbol string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.String("symbol", symbol), xlogger.Error(err))
	}
	return appErr
}
