// Package errors carries the typed error taxonomy shared by the model
// gateway and the HTTP handlers. Every failure surfaced to a client maps to
// exactly one code, never a generic catch-all.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific failure type.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates missing or malformed input.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates an unknown character, conversation or role.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnauthorized indicates a bad model API credential.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates the model API rate limit was hit.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeUpstreamError indicates a non-2xx response from the model API.
	ErrCodeUpstreamError ErrorCode = "UPSTREAM_ERROR"
	// ErrCodeNetworkError indicates a transport failure reaching the model API.
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"
	// ErrCodeTimeout indicates the model call exceeded its fixed timeout.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeStorageUnavailable indicates the backing store is unreachable.
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
)

// Error is a structured error carrying one taxonomy code.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the code to the response status used at the boundary.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code extracts the taxonomy code from any error in the chain; errors that
// never got a code are reported as UPSTREAM_ERROR.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUpstreamError
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *Error {
	return &Error{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Timeout creates a timeout error.
func Timeout(msg string, cause error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: msg, Cause: cause}
}

// StorageUnavailable creates a storage unavailable error.
func StorageUnavailable(cause error) *Error {
	return &Error{Code: ErrCodeStorageUnavailable, Message: "database unavailable", Cause: cause}
}

// Wrap wraps an existing error with a taxonomy code.
func Wrap(cause error, code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}
