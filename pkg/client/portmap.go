package client

import (
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/portmap"
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
	"github.com/cubbit/nfsclient/internal/transport"
)

// Portmap resolves program ports via the port mapper (RFC 1833).
type Portmap struct {
	opts Options
	conn *transport.Conn
	rpc  *rpc.Client
}

// NewPortmap returns an unconnected port mapper client. A zero Port
// defaults to the well-known portmapper port.
func NewPortmap(opts Options) *Portmap {
	if opts.Port == 0 {
		opts.Port = portmap.Port
	}
	return &Portmap{opts: opts}
}

// Connect dials the port mapper.
func (p *Portmap) Connect() error {
	conn, err := transport.Dial(p.opts.Host, p.opts.Port, p.opts.Transport, p.opts.Registry)
	if err != nil {
		return err
	}
	p.conn = conn
	p.rpc = rpc.NewClient(conn, nil) // portmap queries need no credentials
	return nil
}

// Disconnect closes the connection. Safe to call repeatedly.
func (p *Portmap) Disconnect() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// GetPort resolves the TCP port serving program/version. A zero
// result means the program is not registered on the server.
func (p *Portmap) GetPort(program, version uint32) (int, error) {
	args := &portmap.GetPortArgs{
		Program:  program,
		Version:  version,
		Protocol: portmap.ProtoTCP,
	}
	encoded, err := args.Encode()
	if err != nil {
		return 0, fmt.Errorf("encode getport args: %w", err)
	}

	reply, err := p.rpc.Call(rpc.ProgramPortmap, rpc.PortmapVersion, portmap.PortmapProcGetPort, encoded)
	if err != nil {
		return 0, err
	}

	port, err := portmap.DecodeGetPortResult(reply)
	if err != nil {
		return 0, err
	}
	return int(port), nil
}
