// Package coreerr defines the typed error taxonomy surfaced at the
// boundary of every core component: NotFound, Validation, Conflict,
// Corruption, Io, Backend.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it without
// parsing strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindCorruption
	KindIo
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindCorruption:
		return "corruption"
	case KindIo:
		return "io"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned at every core API boundary.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func NotFoundf(format string, args ...any) *Error    { return newf(KindNotFound, format, args...) }
func Validationf(format string, args ...any) *Error  { return newf(KindValidation, format, args...) }
func Conflictf(format string, args ...any) *Error    { return newf(KindConflict, format, args...) }
func Corruptionf(format string, args ...any) *Error  { return newf(KindCorruption, format, args...) }

func WrapIo(err error, format string, args ...any) *Error {
	return wrapf(KindIo, err, format, args...)
}

func WrapBackend(err error, format string, args ...any) *Error {
	return wrapf(KindBackend, err, format, args...)
}

func WrapCorruption(err error, format string, args ...any) *Error {
	return wrapf(KindCorruption, err, format, args...)
}

// Is reports whether err (or anything it wraps) is a *Error of the given
// kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it (or something it wraps) is a
// *Error, and KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
