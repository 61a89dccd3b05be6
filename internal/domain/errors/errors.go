// Package errors provides domain-specific errors for the daybook application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrNotPaired           = errors.New("device not paired")
	ErrInvalidCode         = errors.New("invalid pairing code")
	ErrSessionExpired      = errors.New("session expired")
	ErrRecoveryUnavailable = errors.New("no recoverable identity stored")
	ErrHandlerNotFound     = errors.New("no handler for event type")
	ErrLedgerConflict      = errors.New("event already ledgered")
)

// ErrorCode categorizes errors for handling and reporting. The engine
// routes on these codes: transport errors go to backoff retry, auth
// errors to session recovery, recovery errors to the UI.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION"
	CodeTransport  ErrorCode = "TRANSPORT"
	CodeAuth       ErrorCode = "AUTH"
	CodeRecovery   ErrorCode = "RECOVERY"
	CodeStorage    ErrorCode = "STORAGE"
	CodeHandler    ErrorCode = "HANDLER"
)

// DaybookError wraps errors with a routing code and a message.
type DaybookError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *DaybookError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *DaybookError) Unwrap() error {
	return e.Cause
}

// NewError creates a new DaybookError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *DaybookError {
	return &DaybookError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the ErrorCode from err's chain, or returns the empty
// string when no DaybookError is present.
func CodeOf(err error) ErrorCode {
	var de *DaybookError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsAuth reports whether err is an authentication-class error. The
// connection manager uses this to route a failed handshake to session
// recovery instead of a generic transport retry.
func IsAuth(err error) bool {
	return CodeOf(err) == CodeAuth
}

// Is reports whether err matches target using errors.Is semantics.
// This is a convenience wrapper around the standard library's errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target to that error value.
// This is a convenience wrapper around the standard library's errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
