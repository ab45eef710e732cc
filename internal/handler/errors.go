package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/chit-chat/internal/domain"
)

// Kind classifies a handler failure. It is mapped to a status code once, in
// Func.ServeHTTP.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindConflict
	KindUnauthorized
	KindNotFound
	KindRateLimited
)

const internalMessage = "Internal Server Error"

// Error is the typed failure returned by handlers.
type Error struct {
	Kind    Kind
	Message string // safe to show to the client
	Err     error  // logged only
}

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindAuth, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Func is an http.Handler whose failures are returned rather than written.
type Func func(w http.ResponseWriter, r *http.Request) *Error

func (fn Func) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e := fn(w, r)
	if e == nil {
		return
	}

	msg := e.Message
	if e.Kind == KindInternal {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "desc", e.Message, "error", e.Err)
		msg = internalMessage
	}
	writeMessage(w, e.Status(), msg)
}

func validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func internal(err error, desc string) *Error {
	return &Error{Kind: KindInternal, Message: desc, Err: err}
}

// fromService maps a service error to a handler Error. desc names the
// operation for the server log when the error is unexpected.
func fromService(err error, desc string) *Error {
	var input *domain.InputError
	switch {
	case errors.As(err, &input):
		return validation(input.Message)
	case errors.Is(err, domain.ErrDuplicateEmail):
		return &Error{Kind: KindConflict, Message: "Email already exists"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return &Error{Kind: KindAuth, Message: "Invalid Credentials"}
	case errors.Is(err, domain.ErrUnauthorized):
		return unauthorized("Unauthorized - Invalid Token")
	case errors.Is(err, domain.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: "User not found"}
	default:
		return internal(err, desc)
	}
}
