package ambee

import (
	"errors"
	"fmt"
)

// Kind classifies a failed Ambee API call.
type Kind int

const (
	// KindAPI is any other error response, a non-JSON body, or an envelope
	// that does not report success.
	KindAPI Kind = iota

	// KindConnection is a network-level failure (DNS, dial, transport, cancellation).
	KindConnection

	// KindTimeout means the request did not complete within the configured timeout.
	KindTimeout

	// KindAuthentication means the API rejected the key (HTTP 401 or 403).
	KindAuthentication
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindAuthentication:
		return "authentication"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel errors for use with errors.Is.
//
// errors.Is(err, ErrConnection) also reports true for timeout and
// authentication failures, which are connection problems as well.
var (
	ErrAPI            = &Error{Kind: KindAPI, Message: "ambee api error"}
	ErrConnection     = &Error{Kind: KindConnection, Message: "ambee connection error"}
	ErrTimeout        = &Error{Kind: KindTimeout, Message: "ambee connection timeout"}
	ErrAuthentication = &Error{Kind: KindAuthentication, Message: "ambee authentication error"}
)

// ErrUnexpectedShape is wrapped by the parsers when a successful envelope does
// not carry the array or object a record is built from. It is never an *Error.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Error is returned for every failed request.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// Message is a short description of the failure.
	Message string

	// Body is the decoded JSON body, if the response carried one.
	Body Envelope

	// Text is the raw body when it was not JSON.
	Text string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "ambee " + e.Kind.String() + " error"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so the package sentinels can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == KindConnection {
		return e.IsConnectionError()
	}
	return t.Kind == e.Kind
}

// IsConnectionError reports whether the failure happened while talking to the
// API rather than in the response it returned.
func (e *Error) IsConnectionError() bool {
	switch e.Kind {
	case KindConnection, KindTimeout, KindAuthentication:
		return true
	default:
		return false
	}
}

// IsConnectionError reports whether err is an *Error of a connection kind.
func IsConnectionError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsConnectionError()
}

// KindOf returns the Kind of err and whether err is an *Error at all.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return KindAPI, false
	}
	return e.Kind, true
}
