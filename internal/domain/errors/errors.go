package errors

import (
	"errors"
	"net/http"
)

// Wire codes, per the public error taxonomy.
const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeProviderError  = "PROVIDER_ERROR"
	CodeInternal       = "INTERNAL"
)

// Sentinel errors for internal comparison (errors.Is), not for wire
// responses directly.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// AppError is the uniform application error. Status is the HTTP
// status to send, Code the wire-level machine-readable code, Message
// the human-readable detail returned verbatim as {"detail": Message}.
type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func Wrap(status int, code, message string, err error) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, CodeConflict, message)
}

func RateLimited(message string) *AppError {
	return New(http.StatusTooManyRequests, CodeRateLimited, message)
}

func ProviderError(message string, err error) *AppError {
	return Wrap(http.StatusBadGateway, CodeProviderError, message, err)
}

func Internal(err error) *AppError {
	return Wrap(http.StatusInternalServerError, CodeInternal, "internal server error", err)
}

// As extracts an *AppError from err, falling back to Internal(err) if
// err is not already one.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
