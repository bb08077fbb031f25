// Package apperr is the error taxonomy of the gateway and its single
// translation point to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgellow/movie-gateway/internal/json"
	"github.com/dgellow/movie-gateway/internal/log"
)

// Kind classifies a failure
type Kind int

const (
	KindUnexpected Kind = iota
	KindUnauthorized
	KindBadImplementation
	KindUpstream
	KindNotFound
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadImplementation:
		return "bad_implementation"
	case KindUpstream:
		return "upstream"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unexpected"
	}
}

// Error carries the kind, the HTTP status and client-safe message of a
// failure. Err is the cause; it is logged but never sent to the client.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized is used for any failed authentication attempt
func Unauthorized(err error) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: "Unauthorized", Err: err}
}

// BadImplementation is used when the upstream API answers outside its contract
func BadImplementation(err error) *Error {
	return &Error{Kind: KindBadImplementation, Status: http.StatusInternalServerError, Message: "An internal server error occurred", Err: err}
}

// Unexpected is used for failures nobody anticipated
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Status: http.StatusInternalServerError, Message: "An internal server error occurred", Err: err}
}

// Upstream mirrors a non-success upstream status with a generic reason
func Upstream(status int, err error) *Error {
	msg := http.StatusText(status)
	if msg == "" {
		msg = "Upstream request failed"
	}
	return &Error{Kind: KindUpstream, Status: status, Message: msg, Err: err}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

func BadRequest(message string, err error) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: message, Err: err}
}

// As returns err as *Error, classifying unknown errors as Unexpected
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected(err)
}

// KindOf reports the kind of err
func KindOf(err error) Kind {
	return As(err).Kind
}

// Write translates err into the JSON error response
func Write(w http.ResponseWriter, err error) {
	appErr := As(err)

	fields := map[string]any{
		"kind":   appErr.Kind.String(),
		"status": appErr.Status,
	}
	if appErr.Err != nil {
		fields["error"] = appErr.Err.Error()
	}
	if appErr.Status >= http.StatusInternalServerError {
		log.LogErrorWithFields("apperr", "Request failed", fields)
	} else {
		log.LogDebugWithFields("apperr", "Request rejected", fields)
	}

	json.WriteError(w, appErr.Status, code(appErr), appErr.Message)
}

func code(e *Error) string {
	switch e.Kind {
	case KindUnexpected:
		return "internal_server_error"
	case KindUpstream:
		text := http.StatusText(e.Status)
		if text == "" {
			return "upstream_error"
		}
		return strings.ToLower(strings.ReplaceAll(text, " ", "_"))
	default:
		return e.Kind.String()
	}
}
