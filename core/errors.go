package core

import "github.com/pkg/errors"

// Error kinds. Every domain error wraps exactly one of these.
var (
	ErrUnauthenticated = errors.New("no autenticado")
	ErrForbidden       = errors.New("no autorizado")
	ErrNotFound        = errors.New("no encontrado")
	ErrConflict        = errors.New("conflicto")
	ErrNotEnrolled     = errors.New("el alumno no está matriculado en el curso")
)

// Error is a domain error of a known Kind carrying a message safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

func NewError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

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

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
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
