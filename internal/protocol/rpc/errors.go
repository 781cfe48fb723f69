package rpc

import (
	"errors"
	"fmt"
)

// ErrUnsupportedAuthFlavor is returned when credentials request an
// authentication flavor other than AUTH_NONE or AUTH_UNIX.
var ErrUnsupportedAuthFlavor = errors.New("unsupported auth flavor")

// ProtocolError reports a violation of the ONC RPC wire protocol: a
// malformed or rejected reply, a connection closed mid-message, or a
// short read that left a message incomplete.
//
// When the violation is a reply header field carrying an unexpected
// value, Field names the offending field and Value carries what was
// actually received.
type ProtocolError struct {
	// Reason describes what went wrong
	Reason string

	// Field names the offending reply field, if any
	Field string

	// Value is the actual value of the offending field
	Value uint32

	// Err is the underlying error, if any
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("rpc protocol error: %s: %s=%d", e.Reason, e.Field, e.Value)
	}
	if e.Err != nil {
		return fmt.Sprintf("rpc protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("rpc protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
