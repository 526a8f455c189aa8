// Package apperr defines the closed set of error kinds that cross
// component boundaries in tradeserver, per the error handling design:
// each kind has exactly one wire-level mapping, applied at the HTTP
// boundary in pkg/api.
package apperr

import "errors"

// Kind is one of the error kinds surfaced to callers across a component
// boundary (session manager, matching engine, stores, password box).
type Kind int

const (
	KindInternal Kind = iota
	KindAlreadyExists
	KindNotFound
	KindUnauthenticated
	KindWalletMissing
	KindInsufficientFunds
	KindWrongMarket
	KindBackpressure
	KindPasswordInvalid
	KindStoreError
	KindInvalidUser
)

// Error is a Kind tagged with a human-readable message. It deliberately
// carries no stack trace or wrapped cause beyond Unwrap: the error set is
// small and closed, and every caller that cares distinguishes by Kind, not
// by message text.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// As reports whether err (or something it wraps) is an *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else KindInternal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func (k Kind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindWalletMissing:
		return "wallet_missing"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindWrongMarket:
		return "wrong_market"
	case KindBackpressure:
		return "backpressure"
	case KindPasswordInvalid:
		return "password_invalid"
	case KindStoreError:
		return "store_error"
	case KindInvalidUser:
		return "invalid_user"
	default:
		return "internal"
	}
}
