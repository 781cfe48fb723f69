package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/cubbit/nfsclient/internal/protocol/mount"
	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
)

// SetupError reports a failed session build or rebuild. It is terminal:
// the session could not reach a working state, so no retry budget
// applies.
type SetupError struct {
	// Stage names the build step that failed (e.g. "portmap", "mount",
	// "nfs", "rebuild").
	Stage string

	// Err is the underlying failure.
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("session setup failed at %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError reports an operation that kept failing with
// retryable errors until the attempt budget ran out. The operation may
// have executed on the server any number of times.
type RetryExhaustedError struct {
	// Procedure names the operation that gave up.
	Procedure string

	// Attempts is the number of tries made, including the first.
	Attempts uint

	// Err is the failure of the last attempt.
	Err error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Procedure, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// isRetryable classifies an operation failure.
//
// Transport faults (timeouts, resets, truncated streams) and protocol
// violations are retryable: the connection state is suspect and a fresh
// session may succeed. Server status errors are not: the server
// understood the request and rejected it, so repeating it changes
// nothing. Context cancellation is never retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var nfsErr *nfs.StatusError
	if errors.As(err, &nfsErr) {
		return false
	}
	var mountErr *mount.StatusError
	if errors.As(err, &mountErr) {
		return false
	}

	var protoErr *rpc.ProtocolError
	if errors.As(err, &protoErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	return false
}
