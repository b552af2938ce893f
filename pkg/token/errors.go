package token

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies registry errors. Codes map one-to-one onto HTTP
// statuses at the API boundary; the registry itself never retries.
type ErrorCode int

const (
	// ErrInvalid covers malformed names, unknown keys, schema failures,
	// bad dates and forbidden metadata.
	ErrInvalid ErrorCode = iota

	// ErrForbidden covers denied manage/administer/run-as decisions.
	ErrForbidden

	// ErrQuota marks a per-owner quota violation.
	ErrQuota

	// ErrNotFound marks operations on absent tokens.
	ErrNotFound

	// ErrStaleHash marks a failed optimistic-concurrency check.
	ErrStaleHash

	// ErrInternal marks registry invariants broken at runtime, such as a
	// missing shard key the directory still points at.
	ErrInternal
)

// Error is a structured registry error: a code, a human-readable message
// and the offending identifiers for logging.
type Error struct {
	Code    ErrorCode
	Message string
	Token   string
	Owner   string
}

func (e *Error) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s (token %s)", e.Message, e.Token)
	}
	return e.Message
}

// HTTPStatus maps the error code to its response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ErrInvalid:
		return http.StatusBadRequest
	case ErrForbidden, ErrQuota:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrStaleHash:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// AsError unwraps err into a registry *Error, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// NewValidationError creates an ErrInvalid error.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: ErrInvalid, Message: fmt.Sprintf(format, args...)}
}

// NewForbiddenError creates an ErrForbidden error for a denied decision.
func NewForbiddenError(user, action, tok string) *Error {
	return &Error{
		Code:    ErrForbidden,
		Message: fmt.Sprintf("user %s is not allowed to %s", user, action),
		Token:   tok,
	}
}

// NewQuotaError creates an ErrQuota error.
func NewQuotaError(owner string, quota int) *Error {
	return &Error{
		Code:    ErrQuota,
		Message: fmt.Sprintf("owner %s is already at the token quota of %d", owner, quota),
		Owner:   owner,
	}
}

// NewNotFoundError creates an ErrNotFound error.
func NewNotFoundError(tok string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("token %s not found", tok),
		Token:   tok,
	}
}

// NewStaleHashError creates an ErrStaleHash error.
func NewStaleHashError(tok string) *Error {
	return &Error{
		Code:    ErrStaleHash,
		Message: "stale token version; please sync and retry",
		Token:   tok,
	}
}

// NewInternalError creates an ErrInternal error.
func NewInternalError(format string, args ...any) *Error {
	return &Error{Code: ErrInternal, Message: fmt.Sprintf(format, args...)}
}
