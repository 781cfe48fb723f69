// Package mount implements the client side of the Mount protocol
// (RFC 1813 Appendix I): argument encoding and result decoding for the
// procedures this client uses. The RPC engine carries the bytes.
package mount

import (
	"bytes"
	"fmt"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// StatusError reports a Mount procedure the server answered with a
// non-OK status.
type StatusError struct {
	Proc   string
	Status uint32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mount %s failed: status %d", e.Proc, e.Status)
}

// MntArgs are the arguments of MOUNTPROC3_MNT: the export path to
// mount.
type MntArgs struct {
	DirPath string
}

func (args *MntArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeString(&buf, args.DirPath); err != nil {
		return nil, fmt.Errorf("write dirpath: %w", err)
	}
	return buf.Bytes(), nil
}

// MntResult is the decoded MOUNTPROC3_MNT reply. FileHandle and
// AuthFlavors are only populated when Status is MountOK.
type MntResult struct {
	Status      uint32
	FileHandle  []byte
	AuthFlavors []uint32
}

// DecodeMntResult parses a MNT reply payload.
func DecodeMntResult(data []byte) (*MntResult, error) {
	reader := bytes.NewReader(data)
	result := &MntResult{}

	status, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	result.Status = status

	if status != MountOK {
		return result, nil
	}

	handle, err := xdr.DecodeOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read file handle: %w", err)
	}
	result.FileHandle = handle

	count, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read auth flavor count: %w", err)
	}
	result.AuthFlavors = make([]uint32, 0, count)
	for i := range count {
		flavor, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, fmt.Errorf("read auth flavor %d: %w", i, err)
		}
		result.AuthFlavors = append(result.AuthFlavors, flavor)
	}

	return result, nil
}

// UmntArgs are the arguments of MOUNTPROC3_UMNT: the export path to
// release. The reply carries no body.
type UmntArgs struct {
	DirPath string
}

func (args *UmntArgs) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeString(&buf, args.DirPath); err != nil {
		return nil, fmt.Errorf("write dirpath: %w", err)
	}
	return buf.Bytes(), nil
}
