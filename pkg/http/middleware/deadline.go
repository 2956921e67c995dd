package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// Deadline attaches a timeout to the request context. Handlers observe it through ctx.
func Deadline(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
