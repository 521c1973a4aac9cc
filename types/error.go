package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the library.
type ErrorCode string

// Formatter error codes
const (
	// ErrFormat marks a malformed input block, e.g. a media source that is
	// neither a URL nor base64 data. Local to one message; the caller must
	// fix the input, retrying does not help.
	ErrFormat ErrorCode = "FORMAT_ERROR"

	// ErrParse marks a provider response whose shape was structurally
	// unusable. Missing-but-optional fields degrade instead of raising this.
	ErrParse ErrorCode = "PARSE_ERROR"
)

// Memory error codes
const (
	// ErrCompressionSkipped marks a compression strategy that could not
	// proceed (e.g. summarizer failure). Never surfaced to Get callers;
	// the cascade moves on to the next strategy.
	ErrCompressionSkipped ErrorCode = "COMPRESSION_SKIPPED"

	// ErrOffloadNotFound marks a reload of an unknown or already cleared
	// offload reference.
	ErrOffloadNotFound ErrorCode = "OFFLOAD_NOT_FOUND"

	// ErrSummarizer marks a failure of the external summarization
	// capability.
	ErrSummarizer ErrorCode = "SUMMARIZER_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Provider  string    `json:"provider,omitempty"`
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

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsErrorCode reports whether err (or anything it wraps) carries the code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, or "" if it is not a
// structured Error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
