package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique application error code
type ErrorCode int

const (
	CodeNotFound ErrorCode = iota + 1000
	CodeDuplicate
	CodeBadRequest
	CodeMalformedEvent
	CodeUpstream
	CodeInternal
	CodeRateLimited
)

// AppError is the error type surfaced across service boundaries.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicate, CodeBadRequest, CodeMalformedEvent:
		return http.StatusBadRequest
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Duplicate(message string) *AppError {
	return &AppError{Code: CodeDuplicate, Message: message}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message, Err: err}
}

func MalformedEvent(err error) *AppError {
	return &AppError{Code: CodeMalformedEvent, Message: "malformed webhook event", Err: err}
}

func Upstream(message string, err error) *AppError {
	return &AppError{Code: CodeUpstream, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal server error", Err: err}
}

// IsNotFound reports whether err is a not-found application error.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeNotFound
}

// IsDuplicate reports whether err is a duplicate-registration error.
func IsDuplicate(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeDuplicate
}
