package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SuccessResponse writes data as the JSON body with status 200.
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// NoContentResponse writes no content response.
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// AppErrorResponse writes an AppError body; anything else becomes a generic 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("Something went wrong")
	}
	return c.JSON(appErr.Status, appErr)
}

// ErrorHandler renders errors that reach Echo as AppError bodies.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			appErr = fromHTTPError(he)
		} else {
			appErr = InternalError("Something went wrong").WithError(err)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(appErr.Status)
		return
	}
	_ = c.JSON(appErr.Status, appErr)
}

func fromHTTPError(he *echo.HTTPError) *AppError {
	msg, ok := he.Message.(string)
	if !ok {
		msg = http.StatusText(he.Code)
	}
	switch {
	case he.Code == http.StatusNotFound:
		return NotFoundError("RouteNotFound", msg)
	case he.Code == http.StatusTooManyRequests:
		return TooManyRequestsError(msg)
	case he.Code >= 400 && he.Code < 500:
		return NewAppError(KindValidation, strings.ReplaceAll(http.StatusText(he.Code), " ", ""), "", msg, he.Code)
	default:
		return NewAppError(KindInternal, "Internal", "", msg, he.Code)
	}
}
