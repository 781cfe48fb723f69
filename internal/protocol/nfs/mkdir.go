package nfs

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// MkdirArgs are the arguments of NFSPROC3_MKDIR: parent directory
// handle, new directory name, and its mode.
type MkdirArgs struct {
	DirHandle []byte
	Name      string
	Mode      uint32
}

func (args *MkdirArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeOpaque(&buf, args.DirHandle); err != nil {
		return nil, fmt.Errorf("write dir handle: %w", err)
	}
	if err := xdr.EncodeString(&buf, args.Name); err != nil {
		return nil, fmt.Errorf("write name: %w", err)
	}
	if err := encodeDefaultSattr(&buf, args.Mode); err != nil {
		return nil, fmt.Errorf("write attributes: %w", err)
	}
	return buf.Bytes(), nil
}

// MkdirResult is the decoded MKDIR reply; shaped like CreateResult,
// including the optional post-op handle.
type MkdirResult struct {
	Status uint32
	Handle []byte
	Attr   *FileAttr
}

func DecodeMkdirResult(data []byte) (*MkdirResult, error) {
	reader := bytes.NewReader(data)
	result := &MkdirResult{}

	status, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	result.Status = status

	if status != NFS3OK {
		if err := skipWccData(reader); err != nil {
			return nil, fmt.Errorf("read dir wcc: %w", err)
		}
		return result, nil
	}

	if result.Handle, err = decodePostOpHandle(reader); err != nil {
		return nil, fmt.Errorf("read dir handle: %w", err)
	}
	if result.Attr, err = decodePostOpAttr(reader); err != nil {
		return nil, fmt.Errorf("read dir attributes: %w", err)
	}
	if err := skipWccData(reader); err != nil {
		return nil, fmt.Errorf("read parent wcc: %w", err)
	}

	return result, nil
}
