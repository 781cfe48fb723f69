package nfs

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// GetAttrArgs are the arguments of NFSPROC3_GETATTR: the handle of the
// object whose attributes are wanted.
type GetAttrArgs struct {
	Handle []byte
}

func (args *GetAttrArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeOpaque(&buf, args.Handle); err != nil {
		return nil, fmt.Errorf("write handle: %w", err)
	}
	return buf.Bytes(), nil
}

// GetAttrResult is the decoded GETATTR reply. Attr is populated only
// when Status is NFS3OK; GETATTR carries no optional attributes.
type GetAttrResult struct {
	Status uint32
	Attr   *FileAttr
}

func DecodeGetAttrResult(data []byte) (*GetAttrResult, error) {
	reader := bytes.NewReader(data)
	result := &GetAttrResult{}

	status, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	result.Status = status

	if status != NFS3OK {
		return result, nil
	}

	attr, err := decodeFileAttr(reader)
	if err != nil {
		return nil, fmt.Errorf("read attributes: %w", err)
	}
	result.Attr = attr

	return result, nil
}
