package domain

import "errors"

// Kind groups failures by how they surface to a caller, independent of transport.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindOperational     Kind = "operational"
)

// Error is an expected, operational failure whose Message is safe to show.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and, when set on the target, by Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" && t.Message != e.Message {
		return false
	}
	return e.Kind == t.Kind
}

func Validation(msg string) error      { return &Error{Kind: KindValidation, Message: msg} }
func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) error       { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error        { return &Error{Kind: KindNotFound, Message: msg} }

// Operational wraps an expected infrastructure failure behind a safe message.
func Operational(msg string, err error) error {
	return &Error{Kind: KindOperational, Message: msg, Err: err}
}

// Wrap attaches kind and message to err. An existing domain kind is preserved.
func Wrap(err error, kind Kind, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Kind: existing.Kind, Message: msg, Err: err}
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf reports the domain kind of err. ok is false for programming errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given domain kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

var (
	ErrPageOutOfRange        = &Error{Kind: KindNotFound, Message: "This page does not exist"}
	ErrInvalidOrExpiredToken = &Error{Kind: KindValidation, Message: "Token is invalid or has expired"}
	ErrUnknownEmail          = &Error{Kind: KindNotFound, Message: "There is no user with that email address"}
	ErrIncorrectCredentials  = &Error{Kind: KindUnauthenticated, Message: "Incorrect email or password"}
	ErrNotLoggedIn           = &Error{Kind: KindUnauthenticated, Message: "You are not logged in! Please log in to get access."}
	ErrPrincipalGone         = &Error{Kind: KindUnauthenticated, Message: "The user belonging to this token no longer exists."}
	ErrReauthenticate        = &Error{Kind: KindUnauthenticated, Message: "User recently changed password! Please log in again."}
	ErrNoPermission          = &Error{Kind: KindForbidden, Message: "You do not have permission to perform this action"}
	ErrPrincipalNotFound     = &Error{Kind: KindNotFound, Message: "No user found with that ID"}
	ErrTourNotFound          = &Error{Kind: KindNotFound, Message: "No tour found with that ID"}
	ErrReviewNotFound        = &Error{Kind: KindNotFound, Message: "No review found with that ID"}
)
