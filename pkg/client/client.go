// Package client provides per-program RPC clients for the Portmap,
// Mount and NFSv3 services. Each client owns one TCP connection and
// issues strictly sequential calls on it; resilience (reconnect and
// retry) lives a layer above, in pkg/session.
package client

import (
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
	"github.com/cubbit/nfsclient/internal/transport"
)

// Options configures a program client.
type Options struct {
	// Host is the server to dial.
	Host string

	// Port is the program's TCP port.
	Port int

	// Transport controls timeout and local port selection.
	Transport transport.Options

	// Credentials are presented on every call; nil means AUTH_NONE.
	Credentials *rpc.Credentials

	// Registry receives the client's connection for bulk teardown.
	// May be nil.
	Registry *transport.Registry
}
