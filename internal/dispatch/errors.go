package dispatch

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfigInvalid
	KindValidation
	KindTemplate
	KindTransport
	KindAuditWrite
)

// String returns the kind's canonical name.
func (k Kind) String() string {
	switch k {
	case KindConfigInvalid:
		return "ConfigInvalid"
	case KindValidation:
		return "ValidationError"
	case KindTemplate:
		return "TemplateError"
	case KindTransport:
		return "TransportError"
	case KindAuditWrite:
		return "AuditWriteError"
	default:
		return "Unknown"
	}
}

// Error is a dispatch failure tagged with its kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of a dispatch error, or KindUnknown for
// anything else.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
