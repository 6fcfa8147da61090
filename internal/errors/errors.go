// Package errors provides standardized domain errors with codes for CineWatch.
//
// Usage:
//
//	// In services - return typed errors
//	if exists {
//	    return errors.EmailInUse("email already in use")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrPermissionDenied) {
//	    return
//	}
//
//	// Or turn an auth failure into something a person can read
//	msg := errors.UserMessage(err)
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
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeValidation         Code = "VALIDATION"
	CodeInvalidEmail       Code = "INVALID_EMAIL"
	CodeWeakPassword       Code = "WEAK_PASSWORD"
	CodeEmailInUse         Code = "EMAIL_IN_USE"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeValidation, CodeInvalidEmail, CodeWeakPassword:
		return http.StatusBadRequest
	case CodeEmailInUse:
		return http.StatusConflict
	case CodeInvalidCredentials, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnavailable:
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

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
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

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrPermissionDenied   = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidEmail       = &Error{Code: CodeInvalidEmail, Message: "invalid email"}
	ErrWeakPassword       = &Error{Code: CodeWeakPassword, Message: "weak password"}
	ErrEmailInUse         = &Error{Code: CodeEmailInUse, Message: "email already in use"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrUnauthenticated    = &Error{Code: CodeUnauthenticated, Message: "not signed in"}
	ErrUnavailable        = &Error{Code: CodeUnavailable, Message: "service unavailable"}
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

// PermissionDenied creates a permission denied error.
func PermissionDenied(msg string) *Error {
	return &Error{Code: CodePermissionDenied, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// InvalidEmail creates an invalid email error.
func InvalidEmail(msg string) *Error {
	return &Error{Code: CodeInvalidEmail, Message: msg}
}

// WeakPassword creates a weak password error.
func WeakPassword(msg string) *Error {
	return &Error{Code: CodeWeakPassword, Message: msg}
}

// EmailInUse creates an email in use error.
func EmailInUse(msg string) *Error {
	return &Error{Code: CodeEmailInUse, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// Unauthenticated creates an error for calls that need a signed-in user.
func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

// Unavailable creates an unavailable error.
func Unavailable(msg string) *Error {
	return &Error{Code: CodeUnavailable, Message: msg}
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

// Messages shown to a person after a failed sign-in or sign-up.
const (
	MessageInvalidEmail       = "That email address is badly formatted."
	MessageWeakPassword       = "Password should be at least 6 characters."
	MessageEmailInUse         = "An account already exists for that email address."
	MessageInvalidCredentials = "Incorrect email or password."
	MessageGeneric            = "Something went wrong. Please try again."
)

// UserMessage converts an auth failure into a human-readable message.
// Validation errors carry their own message; anything unknown gets the generic one.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return MessageGeneric
	}
	switch e.Code {
	case CodeInvalidEmail:
		return MessageInvalidEmail
	case CodeWeakPassword:
		return MessageWeakPassword
	case CodeEmailInUse:
		return MessageEmailInUse
	case CodeInvalidCredentials:
		return MessageInvalidCredentials
	case CodeValidation:
		return e.Message
	default:
		return MessageGeneric
	}
}
