// Package apierr defines the failure taxonomy every client operation reports.
// Callers never see raw transport errors; they get an *Error with a Kind.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed operation.
type Kind int

const (
	Unknown Kind = iota
	NetworkUnreachable
	Unauthorized
	Forbidden
	NotFound
	Conflict
	ServerError
	DecodeError
	AuthExpired
	Cancelled
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	NetworkUnreachable: "network_unreachable",
	Unauthorized:       "unauthorized",
	Forbidden:          "forbidden",
	NotFound:           "not_found",
	Conflict:           "conflict",
	ServerError:        "server_error",
	DecodeError:        "decode_error",
	AuthExpired:        "auth_expired",
	Cancelled:          "cancelled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MessageSessionExpired is the user-facing text attached to AuthExpired.
const MessageSessionExpired = "session expired"

// Error is the structured failure returned across the client boundary.
type Error struct {
	Kind       Kind
	Message    string
	HTTPStatus int    // 0 when no response was received
	Body       []byte // response body, if any
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by Kind so errors.Is(err, &Error{Kind: NotFound}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
	}
	return false
}

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an *Error of the given kind around cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Expired is the terminal failure surfaced when a refresh could not restore
// the session.
func Expired(cause error) *Error {
	return &Error{Kind: AuthExpired, Message: MessageSessionExpired, HTTPStatus: http.StatusUnauthorized, Cause: cause}
}

// FromStatus classifies a non-2xx response status.
func FromStatus(status int, body []byte) *Error {
	kind := KindForStatus(status)
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf("request failed with status %d", status),
		HTTPStatus: status,
		Body:       body,
	}
}

// KindForStatus maps an HTTP status to a Kind. 2xx maps to Unknown, callers
// only consult it for failed responses.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return Unauthorized
	case status == http.StatusForbidden:
		return Forbidden
	case status == http.StatusNotFound, status == http.StatusGone:
		return NotFound
	case status == http.StatusConflict:
		return Conflict
	case status >= 500:
		return ServerError
	default:
		return Unknown
	}
}

// FromContext converts a context error into Cancelled. It returns nil when ctx
// is still live.
func FromContext(ctx context.Context) *Error {
	if err := ctx.Err(); err != nil {
		return Wrap(Cancelled, "request cancelled", err)
	}
	return nil
}

// KindOf reports the Kind carried by err. Context errors that were never
// classified still report Cancelled.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	return Unknown
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// specificity ranks kinds for picking the most informative failure out of
// several. Higher wins.
var specificity = map[Kind]int{
	Unknown:            0,
	NetworkUnreachable: 1,
	ServerError:        2,
	DecodeError:        3,
	Conflict:           4,
	Forbidden:          5,
	NotFound:           6,
	Unauthorized:       7,
	AuthExpired:        8,
	Cancelled:          9,
}

// MostSpecific returns the error with the most specific Kind. Ties keep the
// earliest error.
func MostSpecific(errs ...error) error {
	var best error
	bestRank := -1
	for _, err := range errs {
		if err == nil {
			continue
		}
		if rank := specificity[KindOf(err)]; rank > bestRank {
			best, bestRank = err, rank
		}
	}
	return best
}

// HTTPStatus maps a failure back to a status code for the gateway surface.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthorized, AuthExpired:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case DecodeError, ServerError, NetworkUnreachable:
		return http.StatusBadGateway
	case Cancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
