// Package apperr classifies the failures a service operation can return so
// the HTTP layer can map them to status codes without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "store"
	}
}

// Error is a classified failure. Msg is safe to show to callers; Err is the
// underlying cause and is only ever logged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Store wraps a persistence failure. A nil cause yields nil so call sites can
// write `return apperr.Store("op", err)` unconditionally.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindStore, Msg: op, Err: err}
}

// KindOf reports the kind of err. Unclassified errors count as store errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStore
}

func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }
func IsConflict(err error) bool   { return err != nil && KindOf(err) == KindConflict }
func IsNotFound(err error) bool   { return err != nil && KindOf(err) == KindNotFound }

func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTPError converts err into an echo error. Store failures get a generic
// message; the cause travels as the internal error so the request logger
// records it without sending it to the client.
func ToHTTPError(err error) *echo.HTTPError {
	kind := KindOf(err)
	status := HTTPStatus(kind)
	if kind == KindStore {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	var ae *Error
	errors.As(err, &ae)
	return echo.NewHTTPError(status, ae.Msg)
}
