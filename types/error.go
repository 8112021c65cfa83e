package types

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ErrorCode represents a unified error code across the orchestration core.
type ErrorCode string

// Admission and turn error codes
const (
	ErrRateLimited   ErrorCode = "RATE_LIMITED"
	ErrTimeout       ErrorCode = "TIMEOUT"
	ErrCancelled     ErrorCode = "CANCELLED"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Tool error codes
const (
	ErrConnection       ErrorCode = "CONNECTION"
	ErrToolThrottled    ErrorCode = "TOOL_THROTTLED"
	ErrToolNotFound     ErrorCode = "TOOL_NOT_FOUND"
	ErrInvalidArguments ErrorCode = "INVALID_ARGUMENTS"
	ErrPermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrToolFailed       ErrorCode = "TOOL_FAILED"
)

// Handoff and memory error codes
const (
	ErrHandoffFailed     ErrorCode = "HANDOFF_FAILED"
	ErrMemoryPersistence ErrorCode = "MEMORY_PERSISTENCE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Tool      string    `json:"tool,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithTool records the tool the failure belongs to.
func (e *Error) WithTool(name string) *Error {
	e.Tool = name
	return e
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(message string) *Error {
	return NewError(ErrTimeout, message).WithRetryable(true)
}

// NewConnectionError creates a retryable connection error.
func NewConnectionError(message string, cause error) *Error {
	return NewError(ErrConnection, message).WithCause(cause).WithRetryable(true)
}

// NewRateLimitError creates the non-retryable admission error surfaced to callers.
func NewRateLimitError(message string) *Error {
	return NewError(ErrRateLimited, message)
}

// AsError extracts a *Error from the chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// Normalize maps an arbitrary error onto the coded taxonomy. Coded errors are
// returned unchanged; nil stays nil.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("deadline exceeded").WithCause(err)
	case errors.Is(err, context.Canceled):
		return NewError(ErrCancelled, "cancelled").WithCause(err)
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF):
		return NewConnectionError("connection failure", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError("network timeout").WithCause(err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewConnectionError("connection failure", err)
	}

	return NewError(ErrToolFailed, err.Error()).WithCause(err)
}

// ErrorType names the concrete failure class: the code for coded errors,
// otherwise the dynamic Go type.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return string(e.Code)
	}
	return fmt.Sprintf("%T", err)
}
