package hub

import "errors"

var (
	// ErrNotFound is returned by Registry lookups against a connection that
	// is not (or no longer) registered.
	ErrNotFound = errors.New("connection not found")

	ErrMalformedPayload = errors.New("malformed payload")
	ErrEmptyMessage     = errors.New("empty message")
	ErrTooLong          = errors.New("message too long")

	// ErrSendBufferFull and ErrConnectionGone are reported by transports when
	// a single delivery cannot be completed.
	ErrSendBufferFull = errors.New("send buffer full")
	ErrConnectionGone = errors.New("connection gone")
)

// ValidationError describes why an inbound message was rejected. Msg is the
// human readable text sent back to the originating connection.
type ValidationError struct {
	Kind error
	Msg  string
}

func (e *ValidationError) Error() string {
	return e.Kind.Error() + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func newValidationError(kind error, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Msg: msg}
}
