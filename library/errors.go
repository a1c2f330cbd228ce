package library

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

// Error codes returned by the library core.
const (
	CodeParse              Code = "PARSE_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodePolicyViolation    Code = "POLICY_VIOLATION"
	CodeDuplicateUsername  Code = "DUPLICATE_USERNAME"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeIOFailure          Code = "IO_FAILURE"
	CodeValidation         Code = "VALIDATION"
)

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

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors for use with errors.Is().
var (
	ErrParse              = &Error{Code: CodeParse, Message: "malformed record"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrPolicyViolation    = &Error{Code: CodePolicyViolation, Message: "policy violation"}
	ErrDuplicateUsername  = &Error{Code: CodeDuplicateUsername, Message: "username already exists"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid username or password"}
	ErrIOFailure          = &Error{Code: CodeIOFailure, Message: "persistence failed"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
)

func parseErrorf(format string, args ...any) *Error {
	return &Error{Code: CodeParse, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func policyViolationf(format string, args ...any) *Error {
	return &Error{Code: CodePolicyViolation, Message: fmt.Sprintf(format, args...)}
}

func validationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps err with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the Code of err, or "" when err is not a domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
