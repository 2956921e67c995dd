package api

import (
	"context"
	"errors"
	"net/http"

	"RegimeAPI/internal/domain/models"
	xhttp "RegimeAPI/pkg/http"
)

var kindStatus = map[models.ErrorKind]int{
	models.KindValidation:       http.StatusBadRequest,
	models.KindNotFound:         http.StatusNotFound,
	models.KindUpstream:         http.StatusBadGateway,
	models.KindInsufficientData: http.StatusUnprocessableEntity,
	models.KindNonConvergence:   http.StatusUnprocessableEntity,
	models.KindRateLimited:      http.StatusTooManyRequests,
	models.KindCanceled:         xhttp.StatusClientClosedRequest,
	models.KindInternal:         http.StatusInternalServerError,
}

// fieldReasons refines binding failures on known request fields.
var fieldReasons = map[string]string{
	"symbol":      models.ErrUnknownSymbol.Reason,
	"start_date":  models.ErrInvalidDate.Reason,
	"end_date":    models.ErrInvalidDate.Reason,
	"granularity": models.ErrInvalidGranularity.Reason,
	"n_regimes":   models.ErrInvalidParameter.Reason,
}

// toAppError maps a domain error onto the HTTP error body.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var de *models.Error
	if !errors.As(err, &de) {
		return xhttp.InternalError("Something went wrong").WithError(err)
	}

	if de.Kind == models.KindCanceled && errors.Is(err, context.DeadlineExceeded) {
		return xhttp.NewAppError(string(de.Kind), "DeadlineExceeded", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	}

	status, ok := kindStatus[de.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := de.Message
	if msg == "" {
		msg = de.Reason
	}
	if de.Kind == models.KindInternal {
		msg = "Something went wrong"
	}
	return xhttp.NewAppError(string(de.Kind), de.Reason, "", msg, status).WithError(err)
}

func validationFailure(appErr *xhttp.AppError) *xhttp.AppError {
	if reason, ok := fieldReasons[appErr.Field]; ok && appErr.Kind == xhttp.KindValidation {
		appErr.Reason = reason
	}
	return appErr
}
