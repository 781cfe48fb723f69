// Package nfstest provides an in-process Mount+NFSv3 server backed by
// an in-memory filesystem, for exercising the client against real TCP
// connections without an external nfsd. Faults (dropped connections,
// unresponsive peers) can be injected on a chosen call to test
// reconnect behavior.
//
// The server answers both the Mount and NFS programs on a single port,
// so tests point every endpoint at the same address.
package nfstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cubbit/nfsclient/internal/protocol/mount"
	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// FaultMode selects how an injected fault manifests.
type FaultMode int

const (
	// FaultNone disables fault injection.
	FaultNone FaultMode = iota

	// FaultDrop closes the connection without replying.
	FaultDrop

	// FaultHang leaves the request unanswered until the client gives
	// up, then closes the connection.
	FaultHang
)

// Server is a fake Mount+NFSv3 server on a loopback TCP port.
type Server struct {
	ln        net.Listener
	fs        *memFS
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu         sync.Mutex
	conns      map[net.Conn]struct{}
	nfsCalls   int
	mountCalls int
	faultAt    int // 1-based NFS call number to fault, 0 = off
	faultFrom  bool
	faultMode  FaultMode
}

// NewServer starts a server on an ephemeral loopback port.
func NewServer() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		ln:    ln,
		fs:    newMemFS(),
		done:  make(chan struct{}),
		conns: make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Close stops the listener and every open connection.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.ln.Close()
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
	})
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// FailNFSCall arranges for the nth NFS call from now to hit the given
// fault. Mount and portmap traffic is not counted.
func (s *Server) FailNFSCall(n int, mode FaultMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultAt = s.nfsCalls + n
	s.faultFrom = false
	s.faultMode = mode
}

// FailNFSCallsFrom arranges for every NFS call from the nth one on to
// hit the given fault, simulating a server that never recovers.
func (s *Server) FailNFSCallsFrom(n int, mode FaultMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultAt = s.nfsCalls + n
	s.faultFrom = true
	s.faultMode = mode
}

// NFSCalls returns the number of NFS program calls received.
func (s *Server) NFSCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nfsCalls
}

// MountCalls returns the number of MNT procedures received. Each
// session build performs exactly one, so this counts builds.
func (s *Server) MountCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mountCalls
}

// FileContent returns the current content of the file at the given
// slash-separated path, or nil when it does not exist.
func (s *Server) FileContent(path string) []byte {
	return s.fs.content(path)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		// Close may have run between Accept and registration; make sure
		// a late connection still gets torn down.
		select {
		case <-s.done:
			conn.Close()
		default:
		}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		if err := s.handleRequest(conn); err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(conn net.Conn) error {
	var headerBuf [4]byte
	if _, err := io.ReadFull(conn, headerBuf[:]); err != nil {
		return err
	}
	length := binary.BigEndian.Uint32(headerBuf[:]) & 0x7FFFFFFF

	message := make([]byte, length)
	if _, err := io.ReadFull(conn, message); err != nil {
		return err
	}

	call, args, err := parseCall(message)
	if err != nil {
		return err
	}

	if call.Program == rpc.ProgramNFS {
		if faulted, err := s.maybeFault(conn); faulted {
			return err
		}
	}

	var body []byte
	switch call.Program {
	case rpc.ProgramMount:
		body, err = s.handleMount(call.Procedure, args)
	case rpc.ProgramNFS:
		body, err = s.handleNFS(call.Procedure, args)
	default:
		return fmt.Errorf("unknown program %d", call.Program)
	}
	if err != nil {
		return err
	}

	return sendReply(conn, call.XID, body)
}

// maybeFault applies a pending injected fault. Returns true when the
// request must not be answered.
func (s *Server) maybeFault(conn net.Conn) (bool, error) {
	s.mu.Lock()
	s.nfsCalls++
	fault := s.faultAt != 0 &&
		(s.nfsCalls == s.faultAt || (s.faultFrom && s.nfsCalls > s.faultAt))
	mode := s.faultMode
	s.mu.Unlock()

	if !fault {
		return false, nil
	}

	switch mode {
	case FaultDrop:
		return true, fmt.Errorf("injected drop")
	case FaultHang:
		select {
		case <-s.done:
		case <-time.After(30 * time.Second):
		}
		return true, fmt.Errorf("injected hang")
	default:
		return false, nil
	}
}

type callHeader struct {
	XID       uint32
	Program   uint32
	Version   uint32
	Procedure uint32
}

// parseCall splits an RPC call message into its header and argument
// bytes, skipping the credential and verifier.
func parseCall(message []byte) (*callHeader, []byte, error) {
	reader := bytes.NewReader(message)

	var fields [6]uint32
	for i := range fields {
		v, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("read call header: %w", err)
		}
		fields[i] = v
	}
	call := &callHeader{XID: fields[0], Program: fields[3], Version: fields[4], Procedure: fields[5]}

	// credential and verifier: flavor + opaque body
	for range 2 {
		if _, err := xdr.DecodeUint32(reader); err != nil {
			return nil, nil, fmt.Errorf("read auth flavor: %w", err)
		}
		if _, err := xdr.DecodeOpaque(reader); err != nil {
			return nil, nil, fmt.Errorf("read auth body: %w", err)
		}
	}

	args := make([]byte, reader.Len())
	if _, err := io.ReadFull(reader, args); err != nil {
		return nil, nil, err
	}
	return call, args, nil
}

// sendReply frames an accepted-success reply around body.
func sendReply(conn net.Conn, xid uint32, body []byte) error {
	var buf bytes.Buffer
	for _, v := range []uint32{
		xid,
		rpc.RPCReply,
		rpc.RPCMsgAccepted,
		rpc.AuthNone, // verifier flavor
		0,            // verifier length
		rpc.RPCSuccess,
	} {
		if err := xdr.EncodeUint32(&buf, v); err != nil {
			return err
		}
	}
	buf.Write(body)

	framed := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(framed, 0x80000000|uint32(buf.Len()))
	copy(framed[4:], buf.Bytes())
	_, err := conn.Write(framed)
	return err
}

func (s *Server) handleMount(procedure uint32, args []byte) ([]byte, error) {
	switch procedure {
	case mount.MountProcNull:
		return nil, nil
	case mount.MountProcMnt:
		s.mu.Lock()
		s.mountCalls++
		s.mu.Unlock()

		var buf bytes.Buffer
		xdr.EncodeUint32(&buf, mount.MountOK)
		xdr.EncodeOpaque(&buf, s.fs.rootHandle())
		xdr.EncodeUint32(&buf, 1) // one accepted auth flavor
		xdr.EncodeUint32(&buf, rpc.AuthUnix)
		return buf.Bytes(), nil
	case mount.MountProcUmnt:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown mount procedure %d", procedure)
	}
}

func (s *Server) handleNFS(procedure uint32, args []byte) ([]byte, error) {
	reader := bytes.NewReader(args)
	switch procedure {
	case nfs.NFSProcNull:
		return nil, nil
	case nfs.NFSProcGetAttr:
		return s.fs.getattr(reader)
	case nfs.NFSProcLookup:
		return s.fs.lookup(reader)
	case nfs.NFSProcCreate:
		return s.fs.create(reader)
	case nfs.NFSProcMkdir:
		return s.fs.mkdir(reader)
	case nfs.NFSProcWrite:
		return s.fs.write(reader)
	case nfs.NFSProcRead:
		return s.fs.read(reader)
	case nfs.NFSProcRemove:
		return s.fs.remove(reader)
	case nfs.NFSProcRename:
		return s.fs.rename(reader)
	default:
		return nil, fmt.Errorf("unknown nfs procedure %d", procedure)
	}
}
