package storage

import (
	"errors"
	"fmt"
)

// Code classifies a storage failure.
type Code string

const (
	// CodeValidation marks missing or malformed input. Always caller-fixable.
	CodeValidation Code = "ValidationError"
	// CodeNotFound marks an operation on an id that does not exist.
	CodeNotFound Code = "NotFound"
	// CodeConflict marks a uniqueness violation.
	CodeConflict Code = "ConflictError"
	// CodeBackend marks an unreachable or misconfigured engine. Retryable by the caller.
	CodeBackend Code = "BackendError"
)

// Sentinels for errors.Is; any *Error with the same code matches.
var (
	ErrValidation = &Error{Code: CodeValidation}
	ErrNotFound   = &Error{Code: CodeNotFound}
	ErrConflict   = &Error{Code: CodeConflict}
	ErrBackend    = &Error{Code: CodeBackend}
)

// Error is the structured error returned by every Store.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Validationf returns a ValidationError.
func Validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a NotFound error for the given entity.
func NotFound(kind Kind, id string) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", kind, id)}
}

// Conflict returns a ConflictError for a duplicate unique value.
func Conflict(kind Kind, field, value string) error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf("%s with %s %q already exists", kind, field, value)}
}

// Backend wraps an engine failure.
func Backend(op string, err error) error {
	return &Error{Code: CodeBackend, Message: "failed to " + op, Err: err}
}

// CodeOf classifies err. Errors that carry no storage code are backend errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeBackend
}
