package nfs

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// CreateArgs are the arguments of NFSPROC3_CREATE (RFC 1813 Section
// 3.3.8): where to create the file, how, and its initial mode.
//
// UNCHECKED and GUARDED modes carry a sattr3; EXCLUSIVE carries the
// 8-byte create verifier instead.
type CreateArgs struct {
	DirHandle []byte
	Name      string
	Mode      uint32 // CreateUnchecked, CreateGuarded or CreateExclusive
	FileMode  uint32 // Unix permission bits, ignored for exclusive creates
	Verf      uint64 // createverf3, exclusive creates only
}

func (args *CreateArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeOpaque(&buf, args.DirHandle); err != nil {
		return nil, fmt.Errorf("write dir handle: %w", err)
	}
	if err := xdr.EncodeString(&buf, args.Name); err != nil {
		return nil, fmt.Errorf("write name: %w", err)
	}
	if err := xdr.EncodeUint32(&buf, args.Mode); err != nil {
		return nil, fmt.Errorf("write create mode: %w", err)
	}

	if args.Mode == CreateExclusive {
		if err := xdr.EncodeUint64(&buf, args.Verf); err != nil {
			return nil, fmt.Errorf("write create verifier: %w", err)
		}
		return buf.Bytes(), nil
	}

	if err := encodeDefaultSattr(&buf, args.FileMode); err != nil {
		return nil, fmt.Errorf("write attributes: %w", err)
	}
	return buf.Bytes(), nil
}

// CreateResult is the decoded CREATE reply. Handle may be nil even on
// success: the post-op handle is optional and the caller must LOOKUP
// the name if the server omitted it.
type CreateResult struct {
	Status uint32
	Handle []byte
	Attr   *FileAttr
}

func DecodeCreateResult(data []byte) (*CreateResult, error) {
	reader := bytes.NewReader(data)
	result := &CreateResult{}

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
		return nil, fmt.Errorf("read object handle: %w", err)
	}
	if result.Attr, err = decodePostOpAttr(reader); err != nil {
		return nil, fmt.Errorf("read object attributes: %w", err)
	}
	if err := skipWccData(reader); err != nil {
		return nil, fmt.Errorf("read dir wcc: %w", err)
	}

	return result, nil
}
