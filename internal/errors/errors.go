// Package errors provides coded domain errors for the quote journal.
//
// Every failure a Manager operation reports is an *Error carrying one of the
// codes below, so callers can branch on the code instead of string matching:
//
//	book, err := mgr.AddBook(ctx, "", input)
//	if errors.Is(err, errors.ErrNotLoggedIn) {
//	    // prompt for login
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) && domainErr.Code == errors.CodeRemoteWrite {
//	    // offer a manual retry
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION"
	CodeDuplicateUser      Code = "DUPLICATE_USER"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeNotLoggedIn        Code = "NOT_LOGGED_IN"
	CodeRemoteRead         Code = "REMOTE_READ"
	CodeRemoteWrite        Code = "REMOTE_WRITE"
	CodeFormat             Code = "FORMAT"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeNotReady           Code = "NOT_READY"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status the document server uses for a code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateUser:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeNotLoggedIn:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation, CodeFormat:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeRemoteRead, CodeRemoteWrite:
		return http.StatusBadGateway
	case CodeNotReady:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrDuplicateUser      = &Error{Code: CodeDuplicateUser, Message: "user already exists"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrNotLoggedIn        = &Error{Code: CodeNotLoggedIn, Message: "not logged in"}
	ErrRemoteRead         = &Error{Code: CodeRemoteRead, Message: "remote read failed"}
	ErrRemoteWrite        = &Error{Code: CodeRemoteWrite, Message: "remote write failed"}
	ErrFormat             = &Error{Code: CodeFormat, Message: "malformed payload"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "rate limited"}
	ErrNotReady           = &Error{Code: CodeNotReady, Message: "not initialized"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// DuplicateUser reports a registration conflict on username.
func DuplicateUser(username string) *Error {
	return &Error{Code: CodeDuplicateUser, Message: fmt.Sprintf("user %q already exists", username)}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// NotLoggedIn reports that an operation needs a current user.
func NotLoggedIn() *Error {
	return &Error{Code: CodeNotLoggedIn, Message: "no user is logged in"}
}

// RemoteRead wraps a transport failure while reading a document.
func RemoteRead(err error, format string, args ...any) *Error {
	return &Error{Code: CodeRemoteRead, Message: fmt.Sprintf(format, args...), cause: err}
}

// RemoteWrite wraps a transport failure while writing a document.
func RemoteWrite(err error, format string, args ...any) *Error {
	return &Error{Code: CodeRemoteWrite, Message: fmt.Sprintf(format, args...), cause: err}
}

// Format creates a malformed payload error.
func Format(msg string) *Error {
	return &Error{Code: CodeFormat, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Forbiddenf creates a forbidden error with formatted message.
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// RateLimited creates a rate limited error.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}

// NotReady reports use of a component before Initialize completed.
func NotReady(msg string) *Error {
	return &Error{Code: CodeNotReady, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
