// Package xdr implements the subset of the XDR wire format (RFC 4506)
// needed by the ONC RPC client: big-endian fixed-width integers and
// variable-length opaque data padded to 4-byte boundaries.
//
// Every multi-byte field in the RPC, Mount and NFS codecs goes through
// this package; a single misaligned byte here corrupts every field that
// follows it on the wire.
package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxOpaqueLength bounds variable-length opaque fields on decode to
// protect against malformed or hostile length prefixes. NFSv3 replies
// never carry a single opaque field larger than 1 MB at the transfer
// sizes this client negotiates.
const MaxOpaqueLength = 1024 * 1024

// EncodeUint32 writes v as 4 big-endian bytes.
func EncodeUint32(buf *bytes.Buffer, v uint32) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// EncodeUint64 writes v as 8 big-endian bytes.
func EncodeUint64(buf *bytes.Buffer, v uint64) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// EncodeOpaque writes XDR variable-length opaque data.
//
// Per RFC 4506 Section 4.10:
// Format: [length:uint32][data:length bytes][padding:0-3 zero bytes]
// The padding aligns the next item to a 4-byte boundary.
func EncodeOpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}

	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	padding := (4 - (length % 4)) % 4
	for range padding {
		if err := buf.WriteByte(0); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}

	return nil
}

// EncodeString writes an XDR string (RFC 4506 Section 4.11).
// Strings share the opaque encoding and are interpreted as UTF-8.
func EncodeString(buf *bytes.Buffer, s string) error {
	return EncodeOpaque(buf, []byte(s))
}

// EncodeUint32Array writes an XDR variable-length array of uint32:
// a count followed by the elements in order.
func EncodeUint32Array(buf *bytes.Buffer, vals []uint32) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(vals))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, v := range vals {
		if err := binary.Write(buf, binary.BigEndian, v); err != nil {
			return fmt.Errorf("write element %d: %w", i, err)
		}
	}
	return nil
}

// DecodeUint32 reads 4 big-endian bytes. A truncated buffer surfaces
// as an error, never as a zero value.
func DecodeUint32(reader io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return v, nil
}

// DecodeUint64 reads 8 big-endian bytes.
func DecodeUint64(reader io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return v, nil
}

// DecodeOpaque reads XDR variable-length opaque data, consuming the
// trailing padding so the reader is left aligned on a 4-byte boundary.
func DecodeOpaque(reader io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	if length > MaxOpaqueLength {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d", length, MaxOpaqueLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	padding := (4 - (length % 4)) % 4
	if padding > 0 {
		if _, err := io.CopyN(io.Discard, reader, int64(padding)); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}

	return data, nil
}

// DecodeString reads an XDR string.
func DecodeString(reader io.Reader) (string, error) {
	data, err := DecodeOpaque(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeBool reads an XDR boolean (uint32 restricted to 0 or 1).
func DecodeBool(reader io.Reader) (bool, error) {
	v, err := DecodeUint32(reader)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %d", v)
	}
}
