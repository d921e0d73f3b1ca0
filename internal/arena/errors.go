package arena

import (
	"errors"
	"fmt"
)

// Kind classifies arena errors so the transport layer can map them to a
// response without inspecting reason strings.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuthorization
	KindOracleUnavailable
	KindOracleFormat
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindOracleUnavailable:
		return "oracle_unavailable"
	case KindOracleFormat:
		return "oracle_format"
	default:
		return "internal"
	}
}

// Repository sentinels. Store implementations return these (possibly wrapped)
// and the arena translates them into typed errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Error is the single error type surfaced by the arena. Reason is the
// user-visible explanation; Err carries the underlying cause, if any.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an arena error of the given kind.
func NewError(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: cause}
}

func validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func notFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

func unauthorized(reason string) *Error {
	return &Error{Kind: KindAuthorization, Reason: reason}
}

func internal(reason string, cause error) *Error {
	return &Error{Kind: KindInternal, Reason: reason, Err: cause}
}

// KindOf reports the kind of err. Errors that are not arena errors are
// internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// ReasonOf returns the user-visible reason for err.
func ReasonOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return "internal error"
}

// IsRetryable reports whether the failed operation may succeed when the
// judging step is retried. Only oracle failures qualify.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindOracleUnavailable, KindOracleFormat:
		return true
	}
	return false
}
