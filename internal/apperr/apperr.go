// Package apperr defines the error categories shared by the ledger, the
// account registry and the report engine.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = New("NOT_FOUND", "resource not found")
	ErrProtected    = New("PROTECTED", "resource is still referenced")
	ErrInvariant    = New("INVARIANT_VIOLATION", "internal consistency fault")
	ErrInvalidInput = New("INVALID_INPUT", "invalid input")
)

// Error is a categorised error. Two Errors match under errors.Is when their
// codes are equal, so wrapped clones still match the sentinel.
type Error struct {
	Code    string
	Message string
	Err     error
}

// New creates an Error.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// WithError returns a copy wrapping err.
func (e *Error) WithError(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// NotFound is shorthand for ErrNotFound with a message.
func NotFound(format string, args ...any) error {
	return ErrNotFound.WithMessage(format, args...)
}

// Protected is shorthand for ErrProtected with a message.
func Protected(format string, args ...any) error {
	return ErrProtected.WithMessage(format, args...)
}

// Invariant is shorthand for ErrInvariant with a message.
func Invariant(format string, args ...any) error {
	return ErrInvariant.WithMessage(format, args...)
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
