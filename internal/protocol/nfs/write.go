package nfs

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// WriteArgs are the arguments of NFSPROC3_WRITE (RFC 1813 Section
// 3.3.7): target handle, byte offset, data, and the stability level
// the server must honor before replying.
type WriteArgs struct {
	Handle []byte
	Offset uint64
	Stable uint32 // UnstableWrite, DataSyncWrite or FileSyncWrite
	Data   []byte
}

func (args *WriteArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeOpaque(&buf, args.Handle); err != nil {
		return nil, fmt.Errorf("write handle: %w", err)
	}
	if err := xdr.EncodeUint64(&buf, args.Offset); err != nil {
		return nil, fmt.Errorf("write offset: %w", err)
	}
	if err := xdr.EncodeUint32(&buf, uint32(len(args.Data))); err != nil {
		return nil, fmt.Errorf("write count: %w", err)
	}
	if err := xdr.EncodeUint32(&buf, args.Stable); err != nil {
		return nil, fmt.Errorf("write stable_how: %w", err)
	}
	if err := xdr.EncodeOpaque(&buf, args.Data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteResult is the decoded WRITE reply: how many bytes the server
// accepted, how it committed them, and its write verifier.
type WriteResult struct {
	Status    uint32
	Count     uint32
	Committed uint32
	Verf      uint64
}

func DecodeWriteResult(data []byte) (*WriteResult, error) {
	reader := bytes.NewReader(data)
	result := &WriteResult{}

	status, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	result.Status = status

	if err := skipWccData(reader); err != nil {
		return nil, fmt.Errorf("read file wcc: %w", err)
	}

	if status != NFS3OK {
		return result, nil
	}

	if result.Count, err = xdr.DecodeUint32(reader); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if result.Committed, err = xdr.DecodeUint32(reader); err != nil {
		return nil, fmt.Errorf("read committed: %w", err)
	}
	if result.Verf, err = xdr.DecodeUint64(reader); err != nil {
		return nil, fmt.Errorf("read verifier: %w", err)
	}

	return result, nil
}
