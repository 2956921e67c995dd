package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, map[string]string{"pong": "ok"}) })
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	e.GET("/teapot", func(c echo.Context) error {
		return BadRequestError("InvalidParameter", "bad input").WithParam("field", "x")
	})
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func do(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, AppError) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body AppError
	if rec.Code >= 400 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestServerRendersAppErrors(t *testing.T) {
	s := NewServer(nil, []Handler{pingHandler{}})

	rec, _ := do(t, s, "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec, body := do(t, s, "/teapot")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, KindValidation, body.Kind)
	assert.Equal(t, "InvalidParameter", body.Reason)

	rec, body = do(t, s, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, KindInternal, body.Kind)

	rec, body = do(t, s, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RouteNotFound", body.Reason)
}

func TestServerRateLimit(t *testing.T) {
	s := NewServer(nil, []Handler{pingHandler{}}, WithRateLimiter(denyAll{}))

	rec, body := do(t, s, "/ping")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, KindRateLimited, body.Kind)
	assert.Equal(t, "TooManyRequests", body.Reason)

	rec, _ = do(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code, "metrics are never limited")
}
