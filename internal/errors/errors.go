// Package errors provides coded application errors for fosse.
//
// Scan failures are reported with a code so callers can tell a missing
// root apart from a storage failure:
//
//	result, err := scanner.Scan(ctx, root)
//	if errors.Is(err, errors.ErrRootNotFound) {
//	    // nothing was written
//	}
//
// The API maps codes to HTTP status with Code.HTTPStatus.
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
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeValidation     Code = "VALIDATION"
	CodeConflict       Code = "CONFLICT"
	CodeInternal       Code = "INTERNAL"
	CodeConfigParse    Code = "CONFIG_PARSE_ERROR"
	CodeRootNotFound   Code = "ROOT_NOT_FOUND"
	CodeStorage        Code = "STORAGE_ERROR"
	CodeScanInProgress Code = "SCAN_IN_PROGRESS"
	CodeRateLimited    Code = "RATE_LIMITED"
)

// HTTPStatus returns the HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeScanInProgress:
		return http.StatusConflict
	case CodeValidation, CodeConfigParse:
		return http.StatusBadRequest
	case CodeRootNotFound:
		return http.StatusUnprocessableEntity
	case CodeStorage:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error with a code, message and optional details.
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

// Is matches any *Error carrying the same Code.
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

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict       = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
	ErrConfigParse    = &Error{Code: CodeConfigParse, Message: "malformed notebook"}
	ErrRootNotFound   = &Error{Code: CodeRootNotFound, Message: "scan root not found"}
	ErrStorage        = &Error{Code: CodeStorage, Message: "storage failure"}
	ErrScanInProgress = &Error{Code: CodeScanInProgress, Message: "a scan is already in progress"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// ConfigParse reports a notebook at path that could not be parsed.
func ConfigParse(path string, err error) *Error {
	return &Error{Code: CodeConfigParse, Message: "parse notebook " + path, Details: path, cause: err}
}

// RootNotFound reports a scan root that does not exist or is not a directory.
func RootNotFound(path string, err error) *Error {
	return &Error{Code: CodeRootNotFound, Message: "scan root not found: " + path, Details: path, cause: err}
}

// RootUnreadable reports a scan root that exists but cannot be listed. It
// shares RootNotFound's code: the scan cannot tell what is still there.
func RootUnreadable(path string, err error) *Error {
	return &Error{Code: CodeRootNotFound, Message: "scan root unreadable: " + path, Details: path, cause: err}
}

// Storage wraps a catalog storage failure.
func Storage(op string, err error) *Error {
	return &Error{Code: CodeStorage, Message: op, cause: err}
}

// ScanInProgress reports a rejected concurrent scan.
func ScanInProgress(activeID string) *Error {
	return &Error{Code: CodeScanInProgress, Message: "a scan is already in progress", Details: activeID}
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
