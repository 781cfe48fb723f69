package session

import (
	"context"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cubbit/nfsclient/internal/protocol/mount"
	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"timeout", timeoutError{}, true},
		{"wrapped timeout", fmt.Errorf("read: %w", timeoutError{}), true},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"broken pipe", syscall.EPIPE, true},
		{"protocol violation", &rpc.ProtocolError{Reason: "xid mismatch", Field: "xid"}, true},
		{"nfs status", &nfs.StatusError{Proc: "READ", Status: nfs.NFS3ErrNoEnt}, false},
		{"mount status", &mount.StatusError{Proc: "MNT", Status: mount.MountErrAccess}, false},
		{"wrapped nfs status", fmt.Errorf("read file: %w", &nfs.StatusError{Proc: "READ", Status: nfs.NFS3ErrAcces}), false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"generic", fmt.Errorf("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryable(tt.err))
		})
	}
}
