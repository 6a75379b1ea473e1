package grievance

import (
	"errors"
	"fmt"
)

// Kind is the error taxonomy every engine-boundary operation reports
// through. Callers switch on Kind rather than matching error strings.
type Kind string

const (
	KindInvalidTransition  Kind = "INVALID_TRANSITION"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindOwnershipRequired  Kind = "OWNERSHIP_REQUIRED"
	KindDepartmentMismatch Kind = "DEPARTMENT_MISMATCH"
	KindPreconditionFailed Kind = "PRECONDITION_FAILED"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindExternalUnavailable Kind = "EXTERNAL_UNAVAILABLE"
	KindValidation          Kind = "VALIDATION_ERROR"
)

// Error is a structured domain error carrying the failing check so a caller
// (HTTP handler, CLI, test) can report it precisely instead of pattern
// matching on a message string.
type Error struct {
	Kind    Kind
	Message string
	// Detail carries the failing check's specifics, e.g. "role=CITIZEN
	// allowed=[STAFF,DEPT_HEAD]" for Unauthorized, or "from=RESOLVED
	// to=FILED" for InvalidTransition.
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is supports errors.Is(err, grievance.ErrX) style checks: any *Error target
// matches when its Kind equals e's; Message and Detail are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a domain error of the given kind.
func NewError(kind Kind, message, detail string) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail}
}

// Wrap builds a domain error that also carries a lower-level cause,
// unwrap-able with errors.Unwrap/errors.As.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Sentinel errors for errors.Is(err, grievance.ErrX) comparisons where a
// specific Detail isn't needed.
var (
	ErrInvalidTransition   = NewError(KindInvalidTransition, "transition not legal", "")
	ErrUnauthorized        = NewError(KindUnauthorized, "actor role not permitted", "")
	ErrOwnershipRequired   = NewError(KindOwnershipRequired, "actor is not the owning citizen", "")
	ErrDepartmentMismatch  = NewError(KindDepartmentMismatch, "staff department does not match complaint", "")
	ErrPreconditionFailed  = NewError(KindPreconditionFailed, "precondition not satisfied", "")
	ErrNotFound            = NewError(KindNotFound, "entity not found", "")
	ErrConflict            = NewError(KindConflict, "conflicting operation", "")
	ErrExternalUnavailable = NewError(KindExternalUnavailable, "external dependency unavailable", "")
	ErrValidation          = NewError(KindValidation, "validation failed", "")
)

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and the
// zero Kind ("") otherwise. Used where callers want to branch on kind
// without an errors.As boilerplate (e.g. swallowing an expected Conflict).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
