package client

import (
	"fmt"

	"github.com/cubbit/nfsclient/internal/logger"
	"github.com/cubbit/nfsclient/internal/protocol/mount"
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
	"github.com/cubbit/nfsclient/internal/transport"
)

// Mount talks to the remote mountd (RFC 1813 Appendix I). Mounting an
// export yields the root file handle every NFS operation descends from.
type Mount struct {
	opts Options
	conn *transport.Conn
	rpc  *rpc.Client

	// mounted remembers the export path for Umnt on teardown.
	mounted string
}

// NewMount returns an unconnected mount client.
func NewMount(opts Options) *Mount {
	return &Mount{opts: opts}
}

// Connect dials mountd.
func (m *Mount) Connect() error {
	conn, err := transport.Dial(m.opts.Host, m.opts.Port, m.opts.Transport, m.opts.Registry)
	if err != nil {
		return err
	}
	m.conn = conn
	m.rpc = rpc.NewClient(conn, m.opts.Credentials)
	return nil
}

// Disconnect closes the connection. Safe to call repeatedly.
func (m *Mount) Disconnect() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}

// Null pings mountd.
func (m *Mount) Null() error {
	_, err := m.rpc.Call(rpc.ProgramMount, rpc.MountVersion, mount.MountProcNull, nil)
	return err
}

// Mnt mounts the export at dirPath and returns its root file handle.
//
// The handle is valid only for the lifetime of the connection
// generation that produced it; after a reconnect it must be obtained
// again.
func (m *Mount) Mnt(dirPath string) ([]byte, error) {
	args := &mount.MntArgs{DirPath: dirPath}
	encoded, err := args.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode mnt args: %w", err)
	}

	reply, err := m.rpc.Call(rpc.ProgramMount, rpc.MountVersion, mount.MountProcMnt, encoded)
	if err != nil {
		return nil, err
	}

	result, err := mount.DecodeMntResult(reply)
	if err != nil {
		return nil, err
	}
	if result.Status != mount.MountOK {
		return nil, &mount.StatusError{Proc: "MNT", Status: result.Status}
	}

	m.mounted = dirPath
	logger.Debug("Mounted %s, root handle %x", dirPath, result.FileHandle)
	return result.FileHandle, nil
}

// Umnt releases the export mounted by Mnt. A no-op when nothing is
// mounted. UMNT replies carry no body, so any accepted reply is
// success.
func (m *Mount) Umnt() error {
	if m.mounted == "" {
		return nil
	}

	args := &mount.UmntArgs{DirPath: m.mounted}
	encoded, err := args.Encode()
	if err != nil {
		return fmt.Errorf("encode umnt args: %w", err)
	}

	if _, err := m.rpc.Call(rpc.ProgramMount, rpc.MountVersion, mount.MountProcUmnt, encoded); err != nil {
		return err
	}

	m.mounted = ""
	return nil
}
