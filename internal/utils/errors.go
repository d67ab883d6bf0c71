package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies application errors for status mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidArgument
	KindNotFound
	KindUpstream
	KindUpstreamFormat
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_error"
	case KindUpstreamFormat:
		return "upstream_format_error"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// AppError carries a kind, an HTTP status, a user-facing message and the original cause.
type AppError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewBadRequestError(message string) *AppError {
	return &AppError{Kind: KindInvalidArgument, StatusCode: http.StatusBadRequest, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, StatusCode: http.StatusNotFound, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{Kind: KindInternal, StatusCode: http.StatusInternalServerError, Message: message}
}

// NewUpstreamError reports a model or vision service that failed or returned nothing usable.
// A context deadline in err turns it into a timeout.
func NewUpstreamError(message string, err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(message, err)
	}
	return &AppError{Kind: KindUpstream, StatusCode: http.StatusBadGateway, Message: message, Err: err}
}

// NewUpstreamFormatError reports model output that is not the expected JSON document.
func NewUpstreamFormatError(message string, err error) *AppError {
	return &AppError{Kind: KindUpstreamFormat, StatusCode: http.StatusBadGateway, Message: message, Err: err}
}

func NewTimeoutError(message string, err error) *AppError {
	return &AppError{Kind: KindTimeout, StatusCode: http.StatusGatewayTimeout, Message: message, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// IsAppError reports whether err's chain contains an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
