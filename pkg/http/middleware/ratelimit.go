package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Allower decides whether a client identified by key may proceed.
type Allower interface {
	Allow(key string) bool
}

type retryAfterer interface {
	RetryAfter(key string) time.Duration
}

// RateLimit rejects requests over the per-client budget with 429. Paths starting with any
// of skip are never limited.
func RateLimit(a Allower, skip ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, p := range skip {
				if strings.HasPrefix(path, p) {
					return next(c)
				}
			}

			key := c.RealIP()
			if a.Allow(key) {
				return next(c)
			}
			if ra, ok := a.(retryAfterer); ok {
				secs := int(math.Ceil(ra.RetryAfter(key).Seconds()))
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			}
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
	}
}
