// Package portmap implements the client side of the port mapper
// protocol (RFC 1833) for resolving the TCP port of a remote program.
package portmap

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// Portmap Procedure Numbers
const (
	// PortmapProcNull - Do nothing (connectivity test)
	PortmapProcNull = 0

	// PortmapProcGetPort - Resolve a program's port
	PortmapProcGetPort = 3
)

// Transport protocol numbers used in GETPORT mappings.
const (
	// ProtoTCP selects TCP transports
	ProtoTCP = 6

	// ProtoUDP selects UDP transports
	ProtoUDP = 17
)

// Port is the well-known portmapper port.
const Port = 111

// GetPortArgs are the arguments of PMAPPROC_GETPORT: the mapping being
// queried. The port field is ignored by the server and sent as zero.
type GetPortArgs struct {
	Program  uint32
	Version  uint32
	Protocol uint32
}

func (args *GetPortArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range []uint32{args.Program, args.Version, args.Protocol, 0} {
		if err := xdr.EncodeUint32(&buf, v); err != nil {
			return nil, fmt.Errorf("write mapping: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeGetPortResult parses a GETPORT reply. A zero port means the
// program is not registered.
func DecodeGetPortResult(data []byte) (uint32, error) {
	reader := bytes.NewReader(data)
	port, err := xdr.DecodeUint32(reader)
	if err != nil {
		return 0, fmt.Errorf("read port: %w", err)
	}
	return port, nil
}
