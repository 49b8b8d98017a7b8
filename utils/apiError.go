package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an ApiError for the HTTP boundary
type ErrorKind string

const (
	KindBadRequest        ErrorKind = "BadRequest"
	KindUnauthorized      ErrorKind = "Unauthorized"
	KindForbidden         ErrorKind = "Forbidden"
	KindNotFound          ErrorKind = "NotFound"
	KindConflict          ErrorKind = "Conflict"
	KindValidation        ErrorKind = "ValidationError"
	KindRateLimitExceeded ErrorKind = "RateLimitExceeded"
	KindInternal          ErrorKind = "InternalError"
)

var kindStatus = map[ErrorKind]int{
	KindBadRequest:        http.StatusBadRequest,
	KindUnauthorized:      http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindNotFound:          http.StatusNotFound,
	KindConflict:          http.StatusConflict,
	KindValidation:        http.StatusUnprocessableEntity,
	KindRateLimitExceeded: http.StatusTooManyRequests,
	KindInternal:          http.StatusInternalServerError,
}

// ApiError is the error type every layer returns to the HTTP boundary.
// Code is a stable machine readable name ("AlreadyVoted", "Expired").
type ApiError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Errors  map[string]string
	cause   error
}

func (e *ApiError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.cause
}

// Is matches sentinels by code so a wrapped copy still satisfies errors.Is
func (e *ApiError) Is(target error) bool {
	t, ok := target.(*ApiError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// StatusCode maps the kind to an HTTP status
func (e *ApiError) StatusCode() int {
	if code, ok := kindStatus[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Status is "fail" for client errors and "error" otherwise
func (e *ApiError) Status() string {
	if code := e.StatusCode(); code >= 400 && code < 500 {
		return "fail"
	}
	return "error"
}

// Wrap returns a copy of e carrying cause
func (e *ApiError) Wrap(cause error) *ApiError {
	cp := *e
	cp.cause = cause
	return &cp
}

// WithMessage returns a copy of e with a different client message
func (e *ApiError) WithMessage(format string, args ...interface{}) *ApiError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func NewApiError(kind ErrorKind, code, message string) *ApiError {
	return &ApiError{Kind: kind, Code: code, Message: message}
}

func BadRequest(message string) *ApiError {
	return NewApiError(KindBadRequest, string(KindBadRequest), message)
}

func Unauthorized(message string) *ApiError {
	return NewApiError(KindUnauthorized, string(KindUnauthorized), message)
}

func Forbidden(message string) *ApiError {
	return NewApiError(KindForbidden, string(KindForbidden), message)
}

func NotFound(message string) *ApiError {
	return NewApiError(KindNotFound, string(KindNotFound), message)
}

func Conflict(message string) *ApiError {
	return NewApiError(KindConflict, string(KindConflict), message)
}

func TooManyRequests(message string) *ApiError {
	return NewApiError(KindRateLimitExceeded, string(KindRateLimitExceeded), message)
}

// Internal wraps an unexpected failure. The message is what clients see.
func Internal(message string, cause error) *ApiError {
	return NewApiError(KindInternal, string(KindInternal), message).Wrap(cause)
}

func ValidationFailed(errs map[string]string) *ApiError {
	e := NewApiError(KindValidation, string(KindValidation), "Validation failed!")
	e.Errors = errs
	return e
}

// AsApiError unwraps err into an *ApiError when one is in the chain
func AsApiError(err error) (*ApiError, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
