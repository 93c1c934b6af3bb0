// Package apperr defines the typed error kinds the core computations fail
// with. The core never retries; it fails fast with one of these and the
// service layer translates the code into an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure.
type Code string

const (
	// CodeNotFound: a referenced house, account, product, stock or
	// transaction is missing from the snapshot.
	CodeNotFound Code = "not_found"
	// CodePermissionDenied: caller is not a member, not an admin, or the
	// operation is not allowed for this account.
	CodePermissionDenied Code = "permission_denied"
	// CodeFailedPrecondition: required data missing or the mutation would
	// touch already-settled history.
	CodeFailedPrecondition Code = "failed_precondition"
	// CodeAlreadyExists: uniqueness violation (e.g. duplicate email).
	CodeAlreadyExists Code = "already_exists"
	// CodeUnauthenticated: no valid credentials.
	CodeUnauthenticated Code = "unauthenticated"
	// CodeInternal: unexpected state, e.g. balance data inconsistent with
	// the account or product lists.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf extracts the code from err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message from err. Untyped errors get
// a generic message so internals do not leak to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "something went wrong"
}

// HTTPStatus maps an error to the status the API responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeFailedPrecondition:
		return http.StatusUnprocessableEntity
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
