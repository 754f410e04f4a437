package connection

import "fmt"

// ErrorKind classifies manager errors.
type ErrorKind int

const (
	KindHandshakeFailure ErrorKind = iota + 1
	KindTransportError
	KindParseError
	KindMaxRetriesExceeded
)

// String returns the snake_case kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindHandshakeFailure:
		return "handshake_failure"
	case KindTransportError:
		return "transport_error"
	case KindParseError:
		return "parse_error"
	case KindMaxRetriesExceeded:
		return "max_retries_exceeded"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Error is a classified manager error.
type Error struct {
	Kind    ErrorKind
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches any *Error with the same Kind, so the sentinels below work
// with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrConnectionFailed   = &Error{Kind: KindHandshakeFailure, Message: "connection failed"}
	ErrTransport          = &Error{Kind: KindTransportError, Message: "transport error"}
	ErrParse              = &Error{Kind: KindParseError, Message: "parse error"}
	ErrMaxRetriesExceeded = &Error{Kind: KindMaxRetriesExceeded, Message: "max reconnect attempts reached"}
)

func wrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: err}
}
