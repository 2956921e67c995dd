package api

import (
	"context"
	"net/http"
	"time"

	domrepo "RegimeAPI/internal/domain/repository"
	xhttp "RegimeAPI/pkg/http"

	"github.com/labstack/echo/v4"
)

// Pinger is a dependency probed by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemEchoHandler serves the service banner, probes and the symbol list.
type SystemEchoHandler struct {
	service  string
	registry domrepo.SymbolRegistry
	checks   map[string]Pinger
}

func NewSystemEchoHandler(service string, registry domrepo.SymbolRegistry, checks map[string]Pinger) *SystemEchoHandler {
	return &SystemEchoHandler{service: service, registry: registry, checks: checks}
}

func (h *SystemEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
	e.GET("/symbols", h.Symbols)
}

func (h *SystemEchoHandler) Root(c echo.Context) error {
	return xhttp.SuccessResponse(c, xhttp.ServiceStatus{Service: h.service, Status: "ok"})
}

func (h *SystemEchoHandler) Healthz(c echo.Context) error {
	return xhttp.SuccessResponse(c, xhttp.ServiceStatus{Status: "ok"})
}

// Readyz pings every configured dependency; any failure yields 503.
func (h *SystemEchoHandler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	body := xhttp.ServiceStatus{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			body.Status = "unavailable"
			body.Checks[name] = err.Error()
			continue
		}
		body.Checks[name] = "ok"
	}
	if body.Status != "ok" {
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *SystemEchoHandler) Symbols(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string][]string{"symbols": h.registry.List()})
}
