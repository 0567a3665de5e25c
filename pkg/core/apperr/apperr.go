// Package apperr defines the error taxonomy shared by the resolution pipeline
// and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for propagation and status mapping.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindTransport     Kind = "transport"
	KindNotFound      Kind = "not_found"
	KindUnparseable   Kind = "unparseable"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrTransport     = &Error{Kind: KindTransport}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrUnparseable   = &Error{Kind: KindUnparseable}
)

// Error carries a human-readable Message for the user and optional
// diagnostic Detail (raw model text, upstream body) plus the cause.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can test errors.Is(err, apperr.ErrTransport).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Transport(msg string, cause error) error {
	return &Error{Kind: KindTransport, Message: msg, Err: cause}
}

func NotFound(msg, hint string) error {
	return &Error{Kind: KindNotFound, Message: msg, Detail: hint}
}

// Unparseable keeps the raw model reply for diagnostics.
func Unparseable(msg, raw string, cause error) error {
	return &Error{Kind: KindUnparseable, Message: msg, Detail: raw, Err: cause}
}

// KindOf returns the kind of the first *Error in the chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the user-facing message, falling back to the error text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// DetailOf returns the diagnostic detail of the first *Error in the chain.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}

// HTTPStatus maps an error to the status code the API reports for it.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
