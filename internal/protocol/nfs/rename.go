package nfs

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// RenameArgs are the arguments of NFSPROC3_RENAME: source and target
// diropargs3 pairs. Source and target directory may be the same.
type RenameArgs struct {
	FromDirHandle []byte
	FromName      string
	ToDirHandle   []byte
	ToName        string
}

func (args *RenameArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeOpaque(&buf, args.FromDirHandle); err != nil {
		return nil, fmt.Errorf("write from dir handle: %w", err)
	}
	if err := xdr.EncodeString(&buf, args.FromName); err != nil {
		return nil, fmt.Errorf("write from name: %w", err)
	}
	if err := xdr.EncodeOpaque(&buf, args.ToDirHandle); err != nil {
		return nil, fmt.Errorf("write to dir handle: %w", err)
	}
	if err := xdr.EncodeString(&buf, args.ToName); err != nil {
		return nil, fmt.Errorf("write to name: %w", err)
	}
	return buf.Bytes(), nil
}

// RenameResult is the decoded RENAME reply: a status plus wcc_data for
// both directories, which the client discards.
type RenameResult struct {
	Status uint32
}

func DecodeRenameResult(data []byte) (*RenameResult, error) {
	reader := bytes.NewReader(data)
	result := &RenameResult{}

	status, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	result.Status = status

	if err := skipWccData(reader); err != nil {
		return nil, fmt.Errorf("read fromdir wcc: %w", err)
	}
	if err := skipWccData(reader); err != nil {
		return nil, fmt.Errorf("read todir wcc: %w", err)
	}

	return result, nil
}
