package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// DataUnavailableError means a query the result depends on failed; nothing was guessed or applied.
type DataUnavailableError struct {
	Op  string
	Err error
}

func NewDataUnavailableError(err error, op string) error {
	return &DataUnavailableError{Op: op, Err: err}
}

func (err DataUnavailableError) Error() string {
	if err.Err == nil {
		return err.Op + ": data unavailable"
	}
	return err.Op + ": data unavailable: " + err.Err.Error()
}

func (err DataUnavailableError) Unwrap() error { return err.Err }

func IsDataUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*DataUnavailableError)
	return ok
}

// NotFoundError is implemented by the domain packages' "not found" sentinels.
type NotFoundError interface {
	error
	NotFound() bool
}

type notFound struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &notFound{message: msg}
}

func (nf notFound) Error() string  { return nf.message }
func (nf notFound) NotFound() bool { return true }

func IsNotFound(err error) bool {
	nf, ok := errors.Cause(err).(NotFoundError)
	return ok && nf.NotFound()
}

// PermissionError means the acting user may not perform the operation.
type PermissionError struct {
	message string
}

func NewPermissionError(msg string) error {
	return &PermissionError{message: msg}
}

func (err PermissionError) Error() string { return err.message }

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*PermissionError)
	return ok
}

// ConflictError means the write clashes with existing state (duplicates, exhausted counters).
type ConflictError struct {
	message string
}

func NewConflictError(msg string) error {
	return &ConflictError{message: msg}
}

func (err ConflictError) Error() string { return err.message }

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
