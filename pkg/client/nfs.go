package client

import (
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
	"github.com/cubbit/nfsclient/internal/transport"
)

// NFS issues NFSv3 procedures against nfsd. All methods take and
// return opaque server-issued file handles; the caller owns their
// lifecycle and must discard them when the connection is rebuilt.
type NFS struct {
	opts Options
	conn *transport.Conn
	rpc  *rpc.Client
}

// NewNFS returns an unconnected NFSv3 client.
func NewNFS(opts Options) *NFS {
	return &NFS{opts: opts}
}

// Connect dials nfsd.
func (n *NFS) Connect() error {
	conn, err := transport.Dial(n.opts.Host, n.opts.Port, n.opts.Transport, n.opts.Registry)
	if err != nil {
		return err
	}
	n.conn = conn
	n.rpc = rpc.NewClient(conn, n.opts.Credentials)
	return nil
}

// Disconnect closes the connection. Safe to call repeatedly.
func (n *NFS) Disconnect() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

// Null pings nfsd.
func (n *NFS) Null() error {
	_, err := n.rpc.Call(rpc.ProgramNFS, rpc.NFSVersion, nfs.NFSProcNull, nil)
	return err
}

// GetAttr fetches the attributes of the object behind handle.
func (n *NFS) GetAttr(handle []byte) (*nfs.FileAttr, error) {
	args := &nfs.GetAttrArgs{Handle: handle}
	reply, err := n.call(nfs.NFSProcGetAttr, args.Encode)
	if err != nil {
		return nil, err
	}

	result, err := nfs.DecodeGetAttrResult(reply)
	if err != nil {
		return nil, err
	}
	if result.Status != nfs.NFS3OK {
		return nil, &nfs.StatusError{Proc: "GETATTR", Status: result.Status}
	}
	return result.Attr, nil
}

// Lookup resolves name within the directory behind dirHandle and
// returns the object's handle.
func (n *NFS) Lookup(dirHandle []byte, name string) ([]byte, error) {
	args := &nfs.LookupArgs{DirHandle: dirHandle, Name: name}
	reply, err := n.call(nfs.NFSProcLookup, args.Encode)
	if err != nil {
		return nil, err
	}

	result, err := nfs.DecodeLookupResult(reply)
	if err != nil {
		return nil, err
	}
	if result.Status != nfs.NFS3OK {
		return nil, &nfs.StatusError{Proc: "LOOKUP", Status: result.Status}
	}
	return result.Handle, nil
}

// Mkdir creates a directory. The returned handle may be nil when the
// server omits the optional post-op handle; callers needing it must
// Lookup the name afterwards.
func (n *NFS) Mkdir(dirHandle []byte, name string, mode uint32) ([]byte, error) {
	args := &nfs.MkdirArgs{DirHandle: dirHandle, Name: name, Mode: mode}
	reply, err := n.call(nfs.NFSProcMkdir, args.Encode)
	if err != nil {
		return nil, err
	}

	result, err := nfs.DecodeMkdirResult(reply)
	if err != nil {
		return nil, err
	}
	if result.Status != nfs.NFS3OK {
		return nil, &nfs.StatusError{Proc: "MKDIR", Status: result.Status}
	}
	return result.Handle, nil
}

// Create creates a regular file with the given create mode
// (nfs.CreateUnchecked or nfs.CreateGuarded). The returned handle may
// be nil; see Mkdir.
func (n *NFS) Create(dirHandle []byte, name string, createMode, fileMode uint32) ([]byte, error) {
	args := &nfs.CreateArgs{
		DirHandle: dirHandle,
		Name:      name,
		Mode:      createMode,
		FileMode:  fileMode,
	}
	reply, err := n.call(nfs.NFSProcCreate, args.Encode)
	if err != nil {
		return nil, err
	}

	result, err := nfs.DecodeCreateResult(reply)
	if err != nil {
		return nil, err
	}
	if result.Status != nfs.NFS3OK {
		return nil, &nfs.StatusError{Proc: "CREATE", Status: result.Status}
	}
	return result.Handle, nil
}

// Write writes data at offset with the requested stability level and
// returns the number of bytes the server accepted.
func (n *NFS) Write(handle []byte, offset uint64, stable uint32, data []byte) (uint32, error) {
	args := &nfs.WriteArgs{Handle: handle, Offset: offset, Stable: stable, Data: data}
	reply, err := n.call(nfs.NFSProcWrite, args.Encode)
	if err != nil {
		return 0, err
	}

	result, err := nfs.DecodeWriteResult(reply)
	if err != nil {
		return 0, err
	}
	if result.Status != nfs.NFS3OK {
		return 0, &nfs.StatusError{Proc: "WRITE", Status: result.Status}
	}
	return result.Count, nil
}

// Read reads up to count bytes at offset.
func (n *NFS) Read(handle []byte, offset uint64, count uint32) (*nfs.ReadResult, error) {
	args := &nfs.ReadArgs{Handle: handle, Offset: offset, Count: count}
	reply, err := n.call(nfs.NFSProcRead, args.Encode)
	if err != nil {
		return nil, err
	}

	result, err := nfs.DecodeReadResult(reply)
	if err != nil {
		return nil, err
	}
	if result.Status != nfs.NFS3OK {
		return nil, &nfs.StatusError{Proc: "READ", Status: result.Status}
	}
	return result, nil
}

// Rename moves fromName in fromDir to toName in toDir.
func (n *NFS) Rename(fromDir []byte, fromName string, toDir []byte, toName string) error {
	args := &nfs.RenameArgs{
		FromDirHandle: fromDir,
		FromName:      fromName,
		ToDirHandle:   toDir,
		ToName:        toName,
	}
	reply, err := n.call(nfs.NFSProcRename, args.Encode)
	if err != nil {
		return err
	}

	result, err := nfs.DecodeRenameResult(reply)
	if err != nil {
		return err
	}
	if result.Status != nfs.NFS3OK {
		return &nfs.StatusError{Proc: "RENAME", Status: result.Status}
	}
	return nil
}

// Remove unlinks name from the directory behind dirHandle.
func (n *NFS) Remove(dirHandle []byte, name string) error {
	args := &nfs.RemoveArgs{DirHandle: dirHandle, Name: name}
	reply, err := n.call(nfs.NFSProcRemove, args.Encode)
	if err != nil {
		return err
	}

	result, err := nfs.DecodeRemoveResult(reply)
	if err != nil {
		return err
	}
	if result.Status != nfs.NFS3OK {
		return &nfs.StatusError{Proc: "REMOVE", Status: result.Status}
	}
	return nil
}

func (n *NFS) call(procedure uint32, encode func() ([]byte, error)) ([]byte, error) {
	encoded, err := encode()
	if err != nil {
		return nil, fmt.Errorf("encode args for procedure %d: %w", procedure, err)
	}
	return n.rpc.Call(rpc.ProgramNFS, rpc.NFSVersion, procedure, encoded)
}
