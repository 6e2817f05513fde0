// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer middleware
// automatically maps them to appropriate HTTP status codes.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates malformed input, rejected before any state change.
	KindValidation
	// KindIllegalTransition indicates a workflow transition that is not legal
	// from the record's current state.
	KindIllegalTransition
	// KindConcurrencyConflict indicates an optimistic-lock or compare-and-swap
	// failure. Callers may retry.
	KindConcurrencyConflict
	// KindPolicyViolation indicates an action forbidden by property policy,
	// e.g. completing a request without required photo evidence.
	KindPolicyViolation
	// KindConfiguration indicates missing or inconsistent operator
	// configuration, e.g. no escalation rule for a required level. Fatal to
	// the affected path and surfaced to operators.
	KindConfiguration
	// KindForbidden indicates the action is not allowed for the actor.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller is expected to succeed on retry.
// Only concurrency conflicts qualify; all other kinds are surfaced verbatim.
func (e *Error) Retryable() bool {
	return e.Kind == KindConcurrencyConflict
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindIllegalTransition, KindConcurrencyConflict:
		return http.StatusConflict
	case KindPolicyViolation:
		return http.StatusUnprocessableEntity
	case KindConfiguration, KindInternal:
		return http.StatusInternalServerError
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// IllegalTransition creates an illegal transition error. The message should
// name both the current and the attempted state.
func IllegalTransition(current, attempted string) *Error {
	return New(KindIllegalTransition,
		fmt.Sprintf("illegal transition from %q to %q", current, attempted))
}

// ConcurrencyConflict creates a retryable conflict error.
func ConcurrencyConflict(message string) *Error {
	return New(KindConcurrencyConflict, message)
}

// PolicyViolation creates a policy violation error.
func PolicyViolation(message string) *Error {
	return New(KindPolicyViolation, message)
}

// Configuration creates a configuration error.
func Configuration(message string) *Error {
	return New(KindConfiguration, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// IsRetryable reports whether err is a retryable domain error.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable()
	}
	return false
}
