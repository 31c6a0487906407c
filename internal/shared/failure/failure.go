package failure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failure for the UI layer.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindNotFound   Kind = "not_found"
	KindTimeout    Kind = "timeout"
	KindInternal   Kind = "internal"
)

// DefaultMessage is shown when a failure carries no message of its own.
const DefaultMessage = "Something went wrong"

// Error is a classified failure with an optional HTTP-like status and structured body.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Body    json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Validation builds a locally recoverable input failure.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

// Transport builds a network/server failure.
func Transport(status int, msg string, body json.RawMessage) *Error {
	return &Error{Kind: KindTransport, Status: status, Message: msg, Body: body}
}

// NotFound builds a failure for a record that no longer exists.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

// Timeout wraps err as a timeout failure.
func Timeout(err error) *Error {
	return &Error{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Message: "request timed out", Err: err}
}

// KindOf reports the failure kind of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns a human-readable message for err, or fallback when err has none.
func Message(err error, fallback string) string {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultMessage
	}
	if err == nil {
		return fallback
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return fallback
	}
	return msg
}

// StatusCode maps err to an HTTP status.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) && fe.Status > 0 {
		return fe.Status
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
