// Package apperror defines the error taxonomy shared by services and
// handlers. Every error that reaches the HTTP layer is resolved to one of
// these kinds before a response is written.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindRateLimited
	KindNotFound
	KindOperational
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	case KindOperational:
		return "operational"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks across layers.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrDuplicate = errors.New("duplicate")
	ErrTooLarge  = errors.New("payload too large")
	ErrMalformed = errors.New("malformed request")
)

// Error is a classified failure. Label is the stable "error" field of the
// response and Message is the human readable detail.
type Error struct {
	Kind     Kind
	Status   int
	Label    string
	Message  string
	Failures validation.Failures
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation wraps validator failures; the status comes from the classifier.
func Validation(failures validation.Failures) *Error {
	return &Error{
		Kind:     KindValidation,
		Status:   validation.StatusFor(failures),
		Label:    validation.ErrorLabel,
		Message:  validation.ErrorMessage,
		Failures: failures,
		Err:      failures,
	}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Label: msg, Err: ErrNotFound}
}

// Operational builds an expected domain failure with its own status.
func Operational(status int, label, msg string, err error) *Error {
	return &Error{Kind: KindOperational, Status: status, Label: label, Message: msg, Err: err}
}

func BadRequest(label, msg string) *Error {
	return Operational(http.StatusBadRequest, label, msg, ErrMalformed)
}

func Conflict(msg string) *Error {
	return Operational(http.StatusConflict, msg, "", ErrConflict)
}

// Duplicate reports a unique-key violation on field.
func Duplicate(field string) *Error {
	return Operational(http.StatusConflict, "Duplicado",
		fmt.Sprintf("Ya existe un registro con ese '%s'", field), ErrDuplicate)
}

func PayloadTooLarge(msg string) *Error {
	return Operational(http.StatusRequestEntityTooLarge, "Archivo demasiado grande", msg, ErrTooLarge)
}

func UnsupportedMediaType(msg string) *Error {
	return Operational(http.StatusUnsupportedMediaType, "Tipo de archivo no permitido", msg, ErrMalformed)
}

// MalformedJSON is the error for a body that is not valid JSON.
func MalformedJSON(err error) *Error {
	return &Error{
		Kind:    KindOperational,
		Status:  http.StatusBadRequest,
		Label:   "JSON mal formado",
		Message: "El cuerpo de la solicitud no es un JSON válido",
		Err:     errors.Join(ErrMalformed, err),
	}
}

func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Label: "Demasiadas solicitudes", Message: msg}
}

func Unexpected(err error) *Error {
	return &Error{
		Kind:   KindUnexpected,
		Status: http.StatusInternalServerError,
		Label:  "Error interno del servidor",
		Err:    err,
	}
}

// From resolves any error to a classified Error. Unclassified errors are
// unexpected, except bare sentinels which keep their meaning.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var failures validation.Failures
	if errors.As(err, &failures) {
		return Validation(failures)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Label: "Recurso no encontrado", Err: err}
	case errors.Is(err, ErrDuplicate):
		return &Error{Kind: KindOperational, Status: http.StatusConflict, Label: "Duplicado", Err: err}
	case errors.Is(err, ErrConflict):
		return &Error{Kind: KindOperational, Status: http.StatusConflict, Label: "Conflicto con el estado actual", Err: err}
	}
	return Unexpected(err)
}

// IsNotFound reports whether err resolves to a not-found kind.
func IsNotFound(err error) bool {
	e := From(err)
	return e != nil && e.Kind == KindNotFound
}
