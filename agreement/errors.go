package agreement

import (
	"errors"
	"fmt"
)

// ErrorKind is the signing workflow's failure taxonomy. Authorization and
// local validation failures are detected before any chain interaction.
type ErrorKind int

const (
	KindUnauthorized ErrorKind = iota + 1
	KindInvalidState
	KindAlreadySigned
	KindNotConfigured
	KindOnChainFailure
	KindNotFound
	KindValidationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	case KindAlreadySigned:
		return "already_signed"
	case KindNotConfigured:
		return "not_configured"
	case KindOnChainFailure:
		return "on_chain_failure"
	case KindNotFound:
		return "not_found"
	case KindValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// Error carries a taxonomy kind alongside the message so the HTTP layer can
// map failures to status codes without string matching.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agreement: %s: %v", e.Msg, e.Err)
	}
	return "agreement: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a taxonomy error from a format string.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds a taxonomy error wrapping an underlying cause.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the taxonomy kind, or zero when err is not a workflow error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given taxonomy kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
