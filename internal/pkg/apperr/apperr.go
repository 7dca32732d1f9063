// Package apperr defines the error classes surfaced at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies an error class.
type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeInvalidIndex         Code = "INVALID_INDEX"
	CodeNotFound             Code = "NOT_FOUND"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodePayloadTooLarge      Code = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeExternalService      Code = "EXTERNAL_SERVICE_ERROR"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is an application error carrying a class code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation           = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrInvalidIndex         = &Error{Code: CodeInvalidIndex, Message: "Invalid index"}
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "Not found"}
	ErrUnauthorized         = &Error{Code: CodeUnauthorized, Message: "Unauthorized"}
	ErrForbidden            = &Error{Code: CodeForbidden, Message: "Forbidden"}
	ErrPayloadTooLarge      = &Error{Code: CodePayloadTooLarge, Message: "payload too large"}
	ErrUnsupportedMediaType = &Error{Code: CodeUnsupportedMediaType, Message: "unsupported media type"}
	ErrExternalService      = &Error{Code: CodeExternalService, Message: "external service failed"}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation reports a missing or malformed field.
func Validation(format string, args ...interface{}) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// MissingFields reports required fields that were empty.
func MissingFields(fields ...string) *Error {
	if len(fields) == 1 {
		return Validation("Missing field: %s", fields[0])
	}
	return Validation("Missing fields: %s", strings.Join(fields, ", "))
}

func NotFound(message string) *Error { return New(CodeNotFound, message) }

func InvalidIndex(raw string) *Error {
	return New(CodeInvalidIndex, fmt.Sprintf("Invalid index: %q", raw))
}

func External(service string, err error) *Error {
	return Wrap(CodeExternalService, service+" request failed", err)
}

// CodeOf returns the class of err, CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns a message safe to show to the caller.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Code == CodeExternalService || e.Code == CodeInternal {
			return e.Message
		}
		return e.Error()
	}
	return "Internal server error"
}
