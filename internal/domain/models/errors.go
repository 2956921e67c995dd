package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the coarse error class surfaced to API clients as error_kind.
type ErrorKind string

const (
	KindValidation       ErrorKind = "ValidationError"
	KindNotFound         ErrorKind = "NotFound"
	KindUpstream         ErrorKind = "UpstreamError"
	KindInsufficientData ErrorKind = "InsufficientData"
	KindNonConvergence   ErrorKind = "NonConvergence"
	KindRateLimited      ErrorKind = "RateLimited"
	KindCanceled         ErrorKind = "Canceled"
	KindInternal         ErrorKind = "Internal"
)

// Error is a classified domain error. Two errors match under errors.Is when their
// reasons match, so wrapped copies carrying a specific message still compare equal
// to the sentinels below.
type Error struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Reason
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason && (t.Kind == "" || t.Kind == e.Kind)
}

var (
	ErrUnknownSymbol       = &Error{Kind: KindValidation, Reason: "UnknownSymbol"}
	ErrInvalidRange        = &Error{Kind: KindValidation, Reason: "InvalidRange"}
	ErrInvalidDate         = &Error{Kind: KindValidation, Reason: "InvalidDate"}
	ErrInvalidGranularity  = &Error{Kind: KindValidation, Reason: "InvalidGranularity"}
	ErrInvalidParameter    = &Error{Kind: KindValidation, Reason: "InvalidParameter"}
	ErrNotFound            = &Error{Kind: KindNotFound, Reason: "NoData"}
	ErrProviderUnavailable = &Error{Kind: KindUpstream, Reason: "ProviderUnavailable"}
	ErrInsufficientData    = &Error{Kind: KindInsufficientData, Reason: "InsufficientData"}
	ErrNonConvergence      = &Error{Kind: KindNonConvergence, Reason: "NonConvergence"}
	ErrCanceled            = &Error{Kind: KindCanceled, Reason: "ClientClosedRequest"}
)

// Errorf returns a copy of base with a formatted message.
func Errorf(base *Error, format string, args ...interface{}) *Error {
	return &Error{Kind: base.Kind, Reason: base.Reason, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error, message string) *Error {
	return &Error{Kind: base.Kind, Reason: base.Reason, Message: message, Err: err}
}

// KindOf classifies any error; unclassified errors are internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether retrying the same call could succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
