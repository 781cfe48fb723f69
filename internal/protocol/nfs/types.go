// Package nfs implements the client side of the NFS version 3
// protocol (RFC 1813): argument encoders and result decoders for the
// procedures this client uses. The structures mirror the wire format
// exactly; business meaning lives with the callers.
package nfs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// TimeVal is an NFS timestamp (nfstime3, RFC 1813 Section 2.5.2):
// seconds and nanoseconds since the UNIX epoch.
type TimeVal struct {
	Seconds  uint32
	Nseconds uint32
}

// SpecData carries device numbers for special files
// (RFC 1813 Section 2.5.5).
type SpecData struct {
	Major uint32
	Minor uint32
}

// FileAttr is the fattr3 structure per RFC 1813 Section 2.3.1: the
// complete attribute set servers return for a filesystem object.
type FileAttr struct {
	Type   uint32   // File type (NF3REG, NF3DIR, ...)
	Mode   uint32   // Unix permission bits
	Nlink  uint32   // Number of hard links
	UID    uint32   // Owner user ID
	GID    uint32   // Owner group ID
	Size   uint64   // File size in bytes
	Used   uint64   // Disk space used in bytes
	Rdev   SpecData // Device number for special files
	Fsid   uint64   // Filesystem identifier
	Fileid uint64   // File identifier (inode number)
	Atime  TimeVal  // Last access time
	Mtime  TimeVal  // Last modification time
	Ctime  TimeVal  // Last metadata change time
}

// decodeFileAttr reads a full fattr3.
func decodeFileAttr(reader io.Reader) (*FileAttr, error) {
	attr := &FileAttr{}

	fields := []struct {
		name string
		dst  *uint32
	}{
		{"type", &attr.Type},
		{"mode", &attr.Mode},
		{"nlink", &attr.Nlink},
		{"uid", &attr.UID},
		{"gid", &attr.GID},
	}
	for _, f := range fields {
		v, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.name, err)
		}
		*f.dst = v
	}

	var err error
	if attr.Size, err = xdr.DecodeUint64(reader); err != nil {
		return nil, fmt.Errorf("read size: %w", err)
	}
	if attr.Used, err = xdr.DecodeUint64(reader); err != nil {
		return nil, fmt.Errorf("read used: %w", err)
	}
	if attr.Rdev.Major, err = xdr.DecodeUint32(reader); err != nil {
		return nil, fmt.Errorf("read rdev major: %w", err)
	}
	if attr.Rdev.Minor, err = xdr.DecodeUint32(reader); err != nil {
		return nil, fmt.Errorf("read rdev minor: %w", err)
	}
	if attr.Fsid, err = xdr.DecodeUint64(reader); err != nil {
		return nil, fmt.Errorf("read fsid: %w", err)
	}
	if attr.Fileid, err = xdr.DecodeUint64(reader); err != nil {
		return nil, fmt.Errorf("read fileid: %w", err)
	}

	for _, tv := range []struct {
		name string
		dst  *TimeVal
	}{
		{"atime", &attr.Atime},
		{"mtime", &attr.Mtime},
		{"ctime", &attr.Ctime},
	} {
		if tv.dst.Seconds, err = xdr.DecodeUint32(reader); err != nil {
			return nil, fmt.Errorf("read %s seconds: %w", tv.name, err)
		}
		if tv.dst.Nseconds, err = xdr.DecodeUint32(reader); err != nil {
			return nil, fmt.Errorf("read %s nseconds: %w", tv.name, err)
		}
	}

	return attr, nil
}

// decodePostOpAttr reads a post_op_attr (RFC 1813 Section 2.6): a
// presence flag optionally followed by a fattr3. Returns nil when the
// attributes are absent.
func decodePostOpAttr(reader io.Reader) (*FileAttr, error) {
	present, err := xdr.DecodeBool(reader)
	if err != nil {
		return nil, fmt.Errorf("read attr presence: %w", err)
	}
	if !present {
		return nil, nil
	}
	return decodeFileAttr(reader)
}

// decodePostOpHandle reads a post_op_fh3: a presence flag optionally
// followed by an opaque file handle. Returns nil when absent.
func decodePostOpHandle(reader io.Reader) ([]byte, error) {
	present, err := xdr.DecodeBool(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle presence: %w", err)
	}
	if !present {
		return nil, nil
	}
	handle, err := xdr.DecodeOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}
	return handle, nil
}

// skipWccData consumes a wcc_data (RFC 1813 Section 2.6): an optional
// wcc_attr followed by a post_op_attr. The client does no cache
// validation, so the contents are discarded.
func skipWccData(reader io.Reader) error {
	present, err := xdr.DecodeBool(reader)
	if err != nil {
		return fmt.Errorf("read pre-op presence: %w", err)
	}
	if present {
		// wcc_attr: size (8) + mtime (8) + ctime (8)
		if _, err := io.CopyN(io.Discard, reader, 24); err != nil {
			return fmt.Errorf("skip pre-op attr: %w", err)
		}
	}

	if _, err := decodePostOpAttr(reader); err != nil {
		return fmt.Errorf("skip post-op attr: %w", err)
	}
	return nil
}

// encodeDefaultSattr writes a sattr3 (RFC 1813 Section 2.5.3) that
// sets only the mode, leaving every other attribute untouched.
func encodeDefaultSattr(buf *bytes.Buffer, mode uint32) error {
	// mode: set
	if err := xdr.EncodeUint32(buf, 1); err != nil {
		return err
	}
	if err := xdr.EncodeUint32(buf, mode); err != nil {
		return err
	}
	// uid, gid, size: don't change
	for range 3 {
		if err := xdr.EncodeUint32(buf, 0); err != nil {
			return err
		}
	}
	// atime, mtime: don't change
	for range 2 {
		if err := xdr.EncodeUint32(buf, 0); err != nil {
			return err
		}
	}
	return nil
}
