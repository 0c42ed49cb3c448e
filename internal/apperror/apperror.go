// Package apperror defines the error kinds surfaced by the service layer.
// Handlers translate a Kind into an HTTP status; services never write responses.
package apperror

import (
	"context"
	"errors"
	"fmt"
)

// Kind is a stable, machine-distinguishable error category.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindForbidden  Kind = "forbidden"
	KindLocked     Kind = "locked"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindStore      Kind = "store"
)

// Error carries a Kind, a client-safe message and the wrapped cause.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so callers can write errors.Is(err, apperror.ErrLocked).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks. Only the Kind is compared.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrLocked     = &Error{Kind: KindLocked}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrStore      = &Error{Kind: KindStore}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Locked(msg string) *Error {
	return &Error{Kind: KindLocked, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Store wraps a persistence failure. Context deadline and cancellation errors are
// marked retryable so callers can distinguish a slow store from a broken one.
func Store(msg string, err error) *Error {
	return &Error{
		Kind:      KindStore,
		Message:   msg,
		Retryable: errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled),
		Err:       err,
	}
}

// As extracts an *Error from err. Errors that are not typed are reported as store
// failures, since anything untyped reaching a handler came from infrastructure.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Store("internal error", err)
}

// KindOf returns the Kind of err, or KindStore for untyped errors.
func KindOf(err error) Kind {
	return As(err).Kind
}
