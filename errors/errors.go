package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Domain error kinds. Wrap them with %w and test with Is.
var (
	ErrConfiguration         = stderrors.New("configuration error")
	ErrNoSources             = fmt.Errorf("%w: no transcript sources configured", ErrConfiguration)
	ErrTranscriptUnavailable = stderrors.New("transcript unavailable")
	ErrFetchFailed           = stderrors.New("transcript fetch failed")
	ErrUpstreamTimeout       = stderrors.New("upstream timeout")
	ErrUpstreamEmpty         = stderrors.New("upstream returned empty content")
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
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

func E(op string, err error, message string, code int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func InvalidInput(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusBadRequest)
}

func Unauthorized(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusUnauthorized)
}

func Forbidden(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusForbidden)
}

func NotFound(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusNotFound)
}

func Unavailable(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusServiceUnavailable)
}

func Internal(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusInternalServerError)
}

// Is, As and Join forward to the standard library so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

func New(text string) error { return stderrors.New(text) }

// IsNotFound reports whether err carries a 404 AppError.
func IsNotFound(err error) bool {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code == http.StatusNotFound
	}
	return false
}

// Code returns the HTTP status for err. Domain kinds map to their boundary
// status; anything unrecognised is a 500.
func Code(err error) int {
	var appErr *AppError
	switch {
	case err == nil:
		return http.StatusOK
	case As(err, &appErr):
		return appErr.Code
	case Is(err, ErrTranscriptUnavailable):
		return http.StatusNotFound
	case Is(err, ErrUpstreamTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
