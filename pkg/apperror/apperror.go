package apperror

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error so callers can map it to a response without
// inspecting messages.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindDuplicateKey      Kind = "DUPLICATE_KEY"
	KindValidation        Kind = "VALIDATION"
	KindExceedsMaximum    Kind = "EXCEEDS_MAXIMUM"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindNoOpenSession     Kind = "NO_OPEN_SESSION"
	KindAlreadyOpen       Kind = "ALREADY_OPEN"
	KindPendingClose      Kind = "PENDING_CLOSE"
	KindHasPhysicalStock  Kind = "HAS_PHYSICAL_STOCK"
	KindHasHistory        Kind = "HAS_HISTORY"
	KindForbidden         Kind = "FORBIDDEN"
	KindConflict          Kind = "CONFLICT"
	KindStoreUnavailable  Kind = "STORE_UNAVAILABLE"
)

// Error is the classified error returned by the core.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for logging. It is never rendered to callers.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = New(KindNotFound, "resource not found")
	ErrDuplicateKey      = New(KindDuplicateKey, "resource already exists")
	ErrValidation        = New(KindValidation, "invalid input")
	ErrExceedsMaximum    = New(KindExceedsMaximum, "quantity exceeds configured maximum")
	ErrInsufficientStock = New(KindInsufficientStock, "insufficient stock")
	ErrNoOpenSession     = New(KindNoOpenSession, "no open cash session")
	ErrAlreadyOpen       = New(KindAlreadyOpen, "cash session already open")
	ErrPendingClose      = New(KindPendingClose, "cash session from a previous day must be closed")
	ErrHasPhysicalStock  = New(KindHasPhysicalStock, "entry still holds physical stock")
	ErrHasHistory        = New(KindHasHistory, "resource is referenced by history")
	ErrForbidden         = New(KindForbidden, "operation not allowed for this user")
	ErrConflict          = New(KindConflict, "concurrent modification, retry later")
	ErrStoreUnavailable  = New(KindStoreUnavailable, "data store unavailable")
)

// Store wraps a persistence failure. The message is generic; the cause is
// kept only for logs. Already classified errors pass through untouched.
func Store(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	msg := "data store unavailable"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "data store timed out"
	}
	return &Error{Kind: KindStoreUnavailable, Message: msg, cause: err}
}

// KindOf returns the kind of err, or KindStoreUnavailable for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStoreUnavailable
}
