package nfs

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// RemoveArgs are the arguments of NFSPROC3_REMOVE: the directory
// handle and the name of the file to unlink.
type RemoveArgs struct {
	DirHandle []byte
	Name      string
}

func (args *RemoveArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeOpaque(&buf, args.DirHandle); err != nil {
		return nil, fmt.Errorf("write dir handle: %w", err)
	}
	if err := xdr.EncodeString(&buf, args.Name); err != nil {
		return nil, fmt.Errorf("write name: %w", err)
	}
	return buf.Bytes(), nil
}

// RemoveResult is the decoded REMOVE reply.
type RemoveResult struct {
	Status uint32
}

func DecodeRemoveResult(data []byte) (*RemoveResult, error) {
	reader := bytes.NewReader(data)
	result := &RemoveResult{}

	status, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	result.Status = status

	if err := skipWccData(reader); err != nil {
		return nil, fmt.Errorf("read dir wcc: %w", err)
	}

	return result, nil
}
