// Package errors defines the application error taxonomy shared by every
// service. Codes are stable identifiers for clients; the HTTP mapping lives
// in the transport layer.
package errors

import (
	"errors"
	"fmt"
)

// AppError carries a machine-readable code alongside the message and the
// underlying cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes. Every user-facing failure in the ledger core maps to one of
// these; none is retryable without the caller changing input or state first.
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidMatchday     = "INVALID_MATCHDAY"
	CodeConflict            = "CONFLICT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternal            = "INTERNAL_ERROR"
)

// New creates an AppError with the given code and message.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// InvalidAmount reports a non-positive or malformed amount.
func InvalidAmount(message string) *AppError {
	return New(CodeInvalidAmount, message)
}

// InsufficientBalance reports a debit exceeding available funds.
func InsufficientBalance(message string) *AppError {
	return New(CodeInsufficientBalance, message)
}

// NotFound reports an absent entity.
func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// Forbidden reports a failed authorization rule.
func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

// InvalidMatchday reports an out-of-range matchday index.
func InvalidMatchday(message string) *AppError {
	return New(CodeInvalidMatchday, message)
}

// Conflict reports a state conflict such as a duplicate payment.
func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

// Validation reports malformed input.
func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *AppError {
	return Wrap(err, CodeInternal, message)
}

// GetAppError extracts an AppError from an error chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err carries the given application error code.
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}
