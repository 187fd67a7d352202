package workflow

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a workflow error so transports can map it to a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
)

// Error is a user-facing workflow failure.
type Error struct {
	Kind    Kind
	Message string
	// Missing lists mandatory document types absent from a submission, if any.
	Missing []DocumentType
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus returns the status code for the error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Messages surfaced verbatim to clients.
const (
	MsgRemarksRequired      = "Remarks are mandatory for both approval and rejection"
	MsgFinalRemarksRequired = "Remarks are mandatory for final approval or rejection"
	MsgDocumentsUnreviewed  = "All documents must be approved or rejected before final approval."
)

// IsKind reports whether err wraps a workflow error of the given kind.
func IsKind(err error, kind Kind) bool {
	var we *Error
	return errors.As(err, &we) && we.Kind == kind
}
