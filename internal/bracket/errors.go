package bracket

import (
	"errors"
	"net/http"
)

// Code is a machine-readable engine error kind.
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeInvalidWinner     Code = "INVALID_WINNER"
	CodeNoChange          Code = "NO_CHANGE"
	CodeDownstreamLocked  Code = "DOWNSTREAM_LOCKED"
	CodeBracketCorruption Code = "BRACKET_CORRUPTION"
	CodeStorageConflict   Code = "STORAGE_CONFLICT"
	CodeStorageFailure    Code = "STORAGE_FAILURE"
)

// Rejection reports whether the code is a validation outcome that goes back
// to the caller as-is.
func (c Code) Rejection() bool {
	switch c {
	case CodeInvalidInput, CodeNotFound, CodeUnauthorized, CodeInvalidState, CodeInvalidWinner, CodeNoChange, CodeDownstreamLocked:
		return true
	}
	return false
}

// Retryable is only true for lock and serialization failures.
func (c Code) Retryable() bool {
	return c == CodeStorageConflict
}

// HTTPStatus maps the code to the response status of the JSON API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidState, CodeNoChange, CodeDownstreamLocked:
		return http.StatusConflict
	case CodeInvalidWinner:
		return http.StatusUnprocessableEntity
	case CodeStorageConflict:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Error is an engine error carrying its Code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error returns the message, followed by the cause when there is one.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError returns an Error without a cause.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError returns an Error that unwraps to cause.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput      = NewError(CodeInvalidInput, "invalid input")
	ErrNotFound          = NewError(CodeNotFound, "not found")
	ErrUnauthorized      = NewError(CodeUnauthorized, "not allowed to edit this tournament")
	ErrInvalidState      = NewError(CodeInvalidState, "tournament is not accepting results")
	ErrInvalidWinner     = NewError(CodeInvalidWinner, "winner is not part of this match")
	ErrNoChange          = NewError(CodeNoChange, "result is unchanged")
	ErrDownstreamLocked  = NewError(CodeDownstreamLocked, "bracket has already advanced past this match")
	ErrBracketCorruption = NewError(CodeBracketCorruption, "bracket structure is inconsistent")
	ErrStorageConflict   = NewError(CodeStorageConflict, "concurrent update, try again")
	ErrStorageFailure    = NewError(CodeStorageFailure, "storage failure")
)

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
