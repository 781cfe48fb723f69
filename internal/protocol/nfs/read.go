package nfs

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// ReadArgs are the arguments of NFSPROC3_READ: target handle, byte
// offset, and the number of bytes requested.
type ReadArgs struct {
	Handle []byte
	Offset uint64
	Count  uint32
}

func (args *ReadArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeOpaque(&buf, args.Handle); err != nil {
		return nil, fmt.Errorf("write handle: %w", err)
	}
	if err := xdr.EncodeUint64(&buf, args.Offset); err != nil {
		return nil, fmt.Errorf("write offset: %w", err)
	}
	if err := xdr.EncodeUint32(&buf, args.Count); err != nil {
		return nil, fmt.Errorf("write count: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadResult is the decoded READ reply. Count may be smaller than
// requested; EOF reports whether the read reached end of file.
type ReadResult struct {
	Status uint32
	Attr   *FileAttr
	Count  uint32
	EOF    bool
	Data   []byte
}

func DecodeReadResult(data []byte) (*ReadResult, error) {
	reader := bytes.NewReader(data)
	result := &ReadResult{}

	status, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	result.Status = status

	if result.Attr, err = decodePostOpAttr(reader); err != nil {
		return nil, fmt.Errorf("read file attributes: %w", err)
	}

	if status != NFS3OK {
		return result, nil
	}

	if result.Count, err = xdr.DecodeUint32(reader); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if result.EOF, err = xdr.DecodeBool(reader); err != nil {
		return nil, fmt.Errorf("read eof: %w", err)
	}
	if result.Data, err = xdr.DecodeOpaque(reader); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	return result, nil
}
