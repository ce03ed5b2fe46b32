// Package obserr defines the error taxonomy shared by every core package:
// invalid_input, canonicalization_error, non_monotonic_ingest, not_found,
// and io_error. Each is a typed error with an Unwrap cause chain, modeled
// on the TypeError/RangeError/TimeoutError pattern from
// github.com/joeycumines/go-eventloop's errors.go.
package obserr

import "fmt"

// Code is one of the five taxonomy strings. HTTP/CLI boundaries map Code to
// status codes / exit codes; the core never does that mapping itself.
type Code string

const (
	CodeInvalidInput          Code = "invalid_input"
	CodeCanonicalizationError Code = "canonicalization_error"
	CodeNonMonotonicIngest    Code = "non_monotonic_ingest"
	CodeNotFound              Code = "not_found"
	CodeIOError               Code = "io_error"
)

// Error is the common shape of every error this package produces: a
// taxonomy Code, a human-readable message, and an optional wrapped cause.
type Error struct {
	code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.code)
	}
	return string(e.code) + ": " + e.Message
}

// Unwrap returns the underlying cause for use with errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Code returns the taxonomy code for e.
func (e *Error) Code() Code { return e.code }

// Is reports whether target is an *Error with the same Code, so callers
// can write errors.Is(err, obserr.ErrNotFound) against a sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.code == e.code
}

func newError(code Code, message string, cause error) *Error {
	return &Error{code: code, Message: message, Cause: cause}
}

// InvalidInput builds a Code: invalid_input error: malformed envelope,
// missing required field, non-integer event_id, unknown top-level field.
func InvalidInput(message string, cause error) *Error {
	return newError(CodeInvalidInput, message, cause)
}

// Canonicalization builds a Code: canonicalization_error error: a payload
// violates canonical JSON constraints (float, NaN/Infinity, non-string key).
func Canonicalization(message string, cause error) *Error {
	return newError(CodeCanonicalizationError, message, cause)
}

// NonMonotonicIngest builds a Code: non_monotonic_ingest error:
// event_id <= last stored event_id.
func NonMonotonicIngest(message string, cause error) *Error {
	return newError(CodeNonMonotonicIngest, message, cause)
}

// NotFound builds a Code: not_found error: a queried thread/turn id absent.
func NotFound(message string, cause error) *Error {
	return newError(CodeNotFound, message, cause)
}

// IOError builds a Code: io_error error: read/write failure at the CLI
// boundary.
func IOError(message string, cause error) *Error {
	return newError(CodeIOError, message, cause)
}

// Sentinels for errors.Is comparisons against a bare code, independent of
// message/cause, e.g. errors.Is(err, ErrNotFound).
var (
	ErrInvalidInput       = &Error{code: CodeInvalidInput}
	ErrCanonicalization   = &Error{code: CodeCanonicalizationError}
	ErrNonMonotonicIngest = &Error{code: CodeNonMonotonicIngest}
	ErrNotFound           = &Error{code: CodeNotFound}
	ErrIOError            = &Error{code: CodeIOError}
)

// Wrap attaches a message and cause using the "message: %w" convention,
// without assigning a taxonomy Code. Useful for ad hoc internal wrapping
// that isn't one of the five boundary errors.
func Wrap(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
