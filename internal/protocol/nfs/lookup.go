package nfs

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// LookupArgs are the arguments of NFSPROC3_LOOKUP: a directory handle
// and the name to resolve within it (diropargs3).
type LookupArgs struct {
	DirHandle []byte
	Name      string
}

func (args *LookupArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeOpaque(&buf, args.DirHandle); err != nil {
		return nil, fmt.Errorf("write dir handle: %w", err)
	}
	if err := xdr.EncodeString(&buf, args.Name); err != nil {
		return nil, fmt.Errorf("write name: %w", err)
	}
	return buf.Bytes(), nil
}

// LookupResult is the decoded LOOKUP reply. On NFS3OK it carries the
// resolved object's handle plus optional object and directory
// attributes; on failure only the optional directory attributes.
type LookupResult struct {
	Status  uint32
	Handle  []byte
	Attr    *FileAttr
	DirAttr *FileAttr
}

func DecodeLookupResult(data []byte) (*LookupResult, error) {
	reader := bytes.NewReader(data)
	result := &LookupResult{}

	status, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	result.Status = status

	if status != NFS3OK {
		if result.DirAttr, err = decodePostOpAttr(reader); err != nil {
			return nil, fmt.Errorf("read dir attributes: %w", err)
		}
		return result, nil
	}

	if result.Handle, err = xdr.DecodeOpaque(reader); err != nil {
		return nil, fmt.Errorf("read object handle: %w", err)
	}
	if result.Attr, err = decodePostOpAttr(reader); err != nil {
		return nil, fmt.Errorf("read object attributes: %w", err)
	}
	if result.DirAttr, err = decodePostOpAttr(reader); err != nil {
		return nil, fmt.Errorf("read dir attributes: %w", err)
	}

	return result, nil
}
