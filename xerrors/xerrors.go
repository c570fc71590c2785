// Package xerrors attaches arbitrary typed data to errors so that it can be recovered further up the call chain.
package xerrors

import (
	"errors"
	"log/slog"
)

// ExtendedError carries a value of type T alongside the error it wraps.
type ExtendedError[T any] struct {
	Data T
	err  error
}

// Error returns the message of the wrapped error.
func (e ExtendedError[T]) Error() string {
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e ExtendedError[T]) Unwrap() error {
	return e.err
}

// LogValue implements slog.LogValuer by logging the attached data only.
func (e ExtendedError[T]) LogValue() slog.Value {
	if logValuer, ok := any(e.Data).(slog.LogValuer); ok {
		return logValuer.LogValue()
	}
	return slog.AnyValue(e.Data)
}

// Extend wraps err together with data. A nil error stays nil.
func Extend[T any](data T, err error) error {
	if err == nil {
		return nil
	}
	return ExtendedError[T]{Data: data, err: err}
}

// Extract finds the outermost data of type T attached anywhere in the error chain.
func Extract[T any](err error) (T, bool) {
	var extendedError ExtendedError[T]
	ok := errors.As(err, &extendedError)
	return extendedError.Data, ok
}

// Unjoin returns the direct children of an errors.Join error, or the error itself.
func Unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if joinedErrs, ok := err.(interface{ Unwrap() []error }); ok {
		return joinedErrs.Unwrap()
	}
	return []error{err}
}
