package http

import (
	"fmt"
	"net/http"
)

// StatusClientClosedRequest is the non-standard status for requests abandoned by the client.
const StatusClientClosedRequest = 499

// Error kinds shared by handlers and middlewares.
const (
	KindValidation  = "ValidationError"
	KindNotFound    = "NotFound"
	KindRateLimited = "RateLimited"
	KindInternal    = "Internal"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Kind    string                 `json:"error_kind"`
	Reason  string                 `json:"reason"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(kind, reason, field, message string, status int) *AppError {
	return &AppError{
		Kind:    kind,
		Reason:  reason,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParams sets error params.
func (e *AppError) WithParams(params map[string]interface{}) *AppError {
	e.Params = params
	return e
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithField names the request field at fault.
func (e *AppError) WithField(field string) *AppError {
	e.Field = field
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(reason, message string) *AppError {
	return NewAppError(KindNotFound, reason, "", message, http.StatusNotFound)
}

// NotFoundErrorf creates a 404 error with formatting.
func NotFoundErrorf(reason, format string, a ...interface{}) *AppError {
	return NotFoundError(reason, fmt.Sprintf(format, a...))
}

// BadRequestError creates a 400 validation error.
func BadRequestError(reason, message string) *AppError {
	return NewAppError(KindValidation, reason, "", message, http.StatusBadRequest)
}

// BadRequestErrorf creates a 400 validation error with formatting.
func BadRequestErrorf(reason, format string, a ...interface{}) *AppError {
	return BadRequestError(reason, fmt.Sprintf(format, a...))
}

// TooManyRequestsError creates a 429 error.
func TooManyRequestsError(message string) *AppError {
	return NewAppError(KindRateLimited, "TooManyRequests", "", message, http.StatusTooManyRequests)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError(KindInternal, "Internal", "", message, http.StatusInternalServerError)
}

// InternalErrorf creates a 500 error with formatting.
func InternalErrorf(format string, a ...interface{}) *AppError {
	return InternalError(fmt.Sprintf(format, a...))
}
