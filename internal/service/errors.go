package service

import (
	"errors"
	"fmt"
)

// Kind classifies failures crossing a store boundary.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is detected client-side or rejected as malformed; no state changed.
	KindValidation
	// KindAuthentication means the server no longer accepts the session.
	KindAuthentication
	// KindNotFound means the mutation target no longer exists server-side.
	KindNotFound
	// KindUnavailable covers network and server failures unrelated to auth.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "unauthenticated"
	case KindNotFound:
		return "not found"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindAuthentication}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUnavailable     = &Error{Kind: KindUnavailable}
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
