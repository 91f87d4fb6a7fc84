package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrValidation
	ErrConflict
	ErrInvalidSeat
	ErrPaymentNotVerified
	ErrSeatTaken
	ErrNoPreferenceAvailable
	ErrUnauthenticated
	ErrForbidden
)

var kindNames = map[Kind]string{
	ErrInternal:              "internal",
	ErrNotFound:              "not_found",
	ErrValidation:            "validation",
	ErrConflict:              "conflict",
	ErrInvalidSeat:           "invalid_seat",
	ErrPaymentNotVerified:    "payment_not_verified",
	ErrSeatTaken:             "seat_taken",
	ErrNoPreferenceAvailable: "no_preference_available",
	ErrUnauthenticated:       "unauthenticated",
	ErrForbidden:             "forbidden",
}

// String returns the snake_case name used in logs and metric labels
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, errors.SeatTaken(""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or ErrInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return stderrors.As(err, &appErr) && appErr.Kind == kind
}

// Constructor functions for common error types

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func InvalidSeatf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidSeat, Message: fmt.Sprintf(format, args...)}
}

func PaymentNotVerifiedf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrPaymentNotVerified, Message: fmt.Sprintf(format, args...)}
}

func SeatTakenf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrSeatTaken, Message: fmt.Sprintf(format, args...)}
}

func NoPreferenceAvailablef(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNoPreferenceAvailable, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: ErrUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
