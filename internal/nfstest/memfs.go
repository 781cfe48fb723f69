package nfstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// node is a file or directory in the in-memory tree.
type node struct {
	id       uint64
	dir      bool
	mode     uint32
	data     []byte
	children map[string]*node
}

// memFS is the in-memory filesystem behind the fake server. Handles
// are the node id encoded as 8 big-endian bytes.
type memFS struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*node
	root   *node
}

func newMemFS() *memFS {
	fs := &memFS{byID: make(map[uint64]*node)}
	fs.root = fs.newNode(true, 0o755)
	return fs
}

// newNode allocates a node. Callers must hold fs.mu (or be the
// constructor).
func (fs *memFS) newNode(dir bool, mode uint32) *node {
	fs.nextID++
	n := &node{id: fs.nextID, dir: dir, mode: mode}
	if dir {
		n.children = make(map[string]*node)
	}
	fs.byID[n.id] = n
	return n
}

func handleOf(n *node) []byte {
	handle := make([]byte, 8)
	binary.BigEndian.PutUint64(handle, n.id)
	return handle
}

// resolveHandle maps a wire handle back to its node. Callers must hold
// fs.mu.
func (fs *memFS) resolveHandle(handle []byte) *node {
	if len(handle) != 8 {
		return nil
	}
	return fs.byID[binary.BigEndian.Uint64(handle)]
}

func (fs *memFS) rootHandle() []byte {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return handleOf(fs.root)
}

// content returns a copy of the data of the file at the given path.
func (fs *memFS) content(path string) []byte {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := fs.root
	for _, component := range strings.Split(path, "/") {
		if component == "" {
			continue
		}
		if n == nil || !n.dir {
			return nil
		}
		n = n.children[component]
	}
	if n == nil || n.dir {
		return nil
	}
	return append([]byte(nil), n.data...)
}

// ===========================================================================
// Procedure implementations
//
// Each returns the reply body for its procedure, including the error
// bodies RFC 1813 prescribes (wcc_data and post_op_attr stubs).
// ===========================================================================

func (fs *memFS) getattr(reader io.Reader) ([]byte, error) {
	handle, err := xdr.DecodeOpaque(reader)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := fs.resolveHandle(handle)
	if n == nil {
		return statusOnly(nfs.NFS3ErrStale), nil
	}

	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, nfs.NFS3OK)
	writeFattr(&buf, n)
	return buf.Bytes(), nil
}

func (fs *memFS) lookup(reader io.Reader) ([]byte, error) {
	dirHandle, name, err := readDiropArgs(reader)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.resolveHandle(dirHandle)
	if dir == nil {
		return lookupError(nfs.NFS3ErrStale), nil
	}
	if !dir.dir {
		return lookupError(nfs.NFS3ErrNotDir), nil
	}
	child, ok := dir.children[name]
	if !ok {
		return lookupError(nfs.NFS3ErrNoEnt), nil
	}

	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, nfs.NFS3OK)
	xdr.EncodeOpaque(&buf, handleOf(child))
	writePostOpAttr(&buf, child)
	writePostOpAttr(&buf, nil) // dir attributes omitted
	return buf.Bytes(), nil
}

func (fs *memFS) create(reader io.Reader) ([]byte, error) {
	dirHandle, name, err := readDiropArgs(reader)
	if err != nil {
		return nil, err
	}
	createMode, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, err
	}
	mode, err := readSattrMode(reader)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.resolveHandle(dirHandle)
	if dir == nil || !dir.dir {
		return wccError(nfs.NFS3ErrStale), nil
	}

	child, exists := dir.children[name]
	switch {
	case exists && createMode == nfs.CreateGuarded:
		return wccError(nfs.NFS3ErrExist), nil
	case exists && child.dir:
		return wccError(nfs.NFS3ErrIsDir), nil
	case exists:
		// unchecked create truncates
		child.data = nil
	default:
		child = fs.newNode(false, mode)
		dir.children[name] = child
	}

	return newObjectReply(child), nil
}

func (fs *memFS) mkdir(reader io.Reader) ([]byte, error) {
	dirHandle, name, err := readDiropArgs(reader)
	if err != nil {
		return nil, err
	}
	mode, err := readSattrMode(reader)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.resolveHandle(dirHandle)
	if dir == nil || !dir.dir {
		return wccError(nfs.NFS3ErrStale), nil
	}
	if _, exists := dir.children[name]; exists {
		return wccError(nfs.NFS3ErrExist), nil
	}

	child := fs.newNode(true, mode)
	dir.children[name] = child
	return newObjectReply(child), nil
}

func (fs *memFS) write(reader io.Reader) ([]byte, error) {
	handle, err := xdr.DecodeOpaque(reader)
	if err != nil {
		return nil, err
	}
	offset, err := xdr.DecodeUint64(reader)
	if err != nil {
		return nil, err
	}
	if _, err := xdr.DecodeUint32(reader); err != nil { // count
		return nil, err
	}
	stable, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, err
	}
	data, err := xdr.DecodeOpaque(reader)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := fs.resolveHandle(handle)
	if n == nil {
		return wccError(nfs.NFS3ErrStale), nil
	}
	if n.dir {
		return wccError(nfs.NFS3ErrIsDir), nil
	}

	end := offset + uint64(len(data))
	if end > uint64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:], data)

	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, nfs.NFS3OK)
	writeEmptyWcc(&buf)
	xdr.EncodeUint32(&buf, uint32(len(data)))
	xdr.EncodeUint32(&buf, stable)
	xdr.EncodeUint64(&buf, 0) // write verifier
	return buf.Bytes(), nil
}

func (fs *memFS) read(reader io.Reader) ([]byte, error) {
	handle, err := xdr.DecodeOpaque(reader)
	if err != nil {
		return nil, err
	}
	offset, err := xdr.DecodeUint64(reader)
	if err != nil {
		return nil, err
	}
	count, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := fs.resolveHandle(handle)
	if n == nil {
		return readError(nfs.NFS3ErrStale), nil
	}
	if n.dir {
		return readError(nfs.NFS3ErrIsDir), nil
	}

	var data []byte
	if offset < uint64(len(n.data)) {
		end := offset + uint64(count)
		if end > uint64(len(n.data)) {
			end = uint64(len(n.data))
		}
		data = n.data[offset:end]
	}
	eof := offset+uint64(len(data)) >= uint64(len(n.data))

	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, nfs.NFS3OK)
	writePostOpAttr(&buf, n)
	xdr.EncodeUint32(&buf, uint32(len(data)))
	writeBool(&buf, eof)
	xdr.EncodeOpaque(&buf, data)
	return buf.Bytes(), nil
}

func (fs *memFS) remove(reader io.Reader) ([]byte, error) {
	dirHandle, name, err := readDiropArgs(reader)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.resolveHandle(dirHandle)
	if dir == nil || !dir.dir {
		return wccError(nfs.NFS3ErrStale), nil
	}
	child, ok := dir.children[name]
	if !ok {
		return wccError(nfs.NFS3ErrNoEnt), nil
	}

	delete(dir.children, name)
	delete(fs.byID, child.id)

	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, nfs.NFS3OK)
	writeEmptyWcc(&buf)
	return buf.Bytes(), nil
}

func (fs *memFS) rename(reader io.Reader) ([]byte, error) {
	fromHandle, fromName, err := readDiropArgs(reader)
	if err != nil {
		return nil, err
	}
	toHandle, toName, err := readDiropArgs(reader)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	status := uint32(nfs.NFS3OK)
	fromDir := fs.resolveHandle(fromHandle)
	toDir := fs.resolveHandle(toHandle)
	switch {
	case fromDir == nil || toDir == nil:
		status = nfs.NFS3ErrStale
	case !fromDir.dir || !toDir.dir:
		status = nfs.NFS3ErrNotDir
	default:
		child, ok := fromDir.children[fromName]
		if !ok {
			status = nfs.NFS3ErrNoEnt
		} else {
			delete(fromDir.children, fromName)
			toDir.children[toName] = child
		}
	}

	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, status)
	writeEmptyWcc(&buf)
	writeEmptyWcc(&buf)
	return buf.Bytes(), nil
}

// ===========================================================================
// Wire helpers
// ===========================================================================

// readDiropArgs reads a diropargs3: directory handle plus name.
func readDiropArgs(reader io.Reader) ([]byte, string, error) {
	handle, err := xdr.DecodeOpaque(reader)
	if err != nil {
		return nil, "", err
	}
	name, err := xdr.DecodeString(reader)
	if err != nil {
		return nil, "", err
	}
	return handle, name, nil
}

// readSattrMode reads a sattr3 and returns the mode, defaulting to
// 0644 when the mode is not being set.
func readSattrMode(reader io.Reader) (uint32, error) {
	mode := uint32(0o644)

	set, err := xdr.DecodeBool(reader)
	if err != nil {
		return 0, fmt.Errorf("read mode presence: %w", err)
	}
	if set {
		if mode, err = xdr.DecodeUint32(reader); err != nil {
			return 0, fmt.Errorf("read mode: %w", err)
		}
	}

	// uid, gid, size, atime, mtime: presence flags with no payload
	// the way the client encodes them
	for range 5 {
		if _, err := xdr.DecodeUint32(reader); err != nil {
			return 0, fmt.Errorf("read sattr field: %w", err)
		}
	}
	return mode, nil
}

// newObjectReply builds the CREATE/MKDIR success body: post-op handle
// and attributes plus directory wcc_data.
func newObjectReply(n *node) []byte {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, nfs.NFS3OK)
	writeBool(&buf, true)
	xdr.EncodeOpaque(&buf, handleOf(n))
	writePostOpAttr(&buf, n)
	writeEmptyWcc(&buf)
	return buf.Bytes()
}

func statusOnly(status uint32) []byte {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, status)
	return buf.Bytes()
}

func lookupError(status uint32) []byte {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, status)
	writePostOpAttr(&buf, nil)
	return buf.Bytes()
}

func wccError(status uint32) []byte {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, status)
	writeEmptyWcc(&buf)
	return buf.Bytes()
}

func readError(status uint32) []byte {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, status)
	writePostOpAttr(&buf, nil)
	return buf.Bytes()
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		xdr.EncodeUint32(buf, 1)
	} else {
		xdr.EncodeUint32(buf, 0)
	}
}

// writePostOpAttr writes a post_op_attr; nil means absent.
func writePostOpAttr(buf *bytes.Buffer, n *node) {
	if n == nil {
		writeBool(buf, false)
		return
	}
	writeBool(buf, true)
	writeFattr(buf, n)
}

// writeEmptyWcc writes a wcc_data with both halves absent.
func writeEmptyWcc(buf *bytes.Buffer) {
	writeBool(buf, false)
	writeBool(buf, false)
}

// writeFattr writes a full fattr3 for the node.
func writeFattr(buf *bytes.Buffer, n *node) {
	fileType := uint32(nfs.NF3REG)
	if n.dir {
		fileType = nfs.NF3DIR
	}

	now := uint32(time.Now().Unix())
	xdr.EncodeUint32(buf, fileType)
	xdr.EncodeUint32(buf, n.mode)
	xdr.EncodeUint32(buf, 1) // nlink
	xdr.EncodeUint32(buf, 0) // uid
	xdr.EncodeUint32(buf, 0) // gid
	xdr.EncodeUint64(buf, uint64(len(n.data)))
	xdr.EncodeUint64(buf, uint64(len(n.data)))
	xdr.EncodeUint32(buf, 0) // rdev major
	xdr.EncodeUint32(buf, 0) // rdev minor
	xdr.EncodeUint64(buf, 1) // fsid
	xdr.EncodeUint64(buf, n.id)
	for range 3 { // atime, mtime, ctime
		xdr.EncodeUint32(buf, now)
		xdr.EncodeUint32(buf, 0)
	}
}
