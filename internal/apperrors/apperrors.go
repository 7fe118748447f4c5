package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeSelfReference   Code = "SELF_REFERENCE"
	CodeDuplicateEdge   Code = "DUPLICATE_EDGE"
	CodeNotAuthorized   Code = "NOT_AUTHORIZED"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotAParticipant Code = "NOT_A_PARTICIPANT"
	CodeNotFound        Code = "NOT_FOUND"
)

// AppError is the domain error returned by the services. Handlers map it to
// an HTTP status; the services never render user-facing text.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func SelfReference(msg string) error   { return New(CodeSelfReference, msg) }
func DuplicateEdge(msg string) error   { return New(CodeDuplicateEdge, msg) }
func NotAuthorized(msg string) error   { return New(CodeNotAuthorized, msg) }
func InvalidState(msg string) error    { return New(CodeInvalidState, msg) }
func NotAParticipant(msg string) error { return New(CodeNotAParticipant, msg) }
func NotFound(msg string) error        { return New(CodeNotFound, msg) }

// CodeOf extracts the domain code from an error chain.
func CodeOf(err error) (Code, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// Is reports whether err carries the given domain code anywhere in its chain.
func Is(err error, code Code) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}

// HTTPStatus maps a domain error to the status the HTTP layer should return.
// Unknown errors are internal.
func HTTPStatus(err error) int {
	code, ok := CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case CodeSelfReference, CodeInvalidState:
		return http.StatusBadRequest
	case CodeDuplicateEdge:
		return http.StatusConflict
	case CodeNotAuthorized, CodeNotAParticipant:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
