package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Record marking per RFC 5531 Section 11: each message travels as one
// or more fragments, each preceded by a 4-byte header whose high bit
// flags the last fragment and whose low 31 bits carry the fragment
// length.
const (
	lastFragmentFlag = 0x80000000
	fragmentLenMask  = 0x7FFFFFFF

	// maxFragmentLength bounds a single reply fragment. NFSv3 READ
	// replies top out at the server's rtmax plus headers; 8 MB leaves
	// generous headroom while rejecting garbage headers early.
	maxFragmentLength = 8 * 1024 * 1024
)

type fragmentHeader struct {
	IsLast bool
	Length uint32
}

// WriteMessage frames payload with a record-marking header and writes
// header plus payload as a single unit. Requests are small enough that
// a single fragment always suffices.
func WriteMessage(w io.Writer, payload []byte) error {
	framed := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(framed[:4], lastFragmentFlag|uint32(len(payload)))
	copy(framed[4:], payload)

	if _, err := w.Write(framed); err != nil {
		return fmt.Errorf("write framed message: %w", err)
	}
	return nil
}

// ReadMessage reassembles one complete message from r, concatenating
// fragment payloads in arrival order until a fragment carries the
// last-fragment flag. A connection closed mid-message is a
// ProtocolError, never a silent truncation.
func ReadMessage(r io.Reader) ([]byte, error) {
	var message []byte

	for {
		header, err := readFragmentHeader(r)
		if err != nil {
			return nil, err
		}

		if header.Length > 0 {
			fragment := make([]byte, header.Length)
			if _, err := io.ReadFull(r, fragment); err != nil {
				return nil, &ProtocolError{
					Reason: "connection closed while reading fragment body",
					Err:    err,
				}
			}
			message = append(message, fragment...)
		}

		if header.IsLast {
			return message, nil
		}
	}
}

func readFragmentHeader(r io.Reader) (*fragmentHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, &ProtocolError{
			Reason: "connection closed while reading fragment header",
			Err:    err,
		}
	}

	header := binary.BigEndian.Uint32(buf[:])
	length := header & fragmentLenMask
	if length > maxFragmentLength {
		return nil, &ProtocolError{
			Reason: "fragment length exceeds maximum",
			Field:  "fragment_length",
			Value:  length,
		}
	}

	return &fragmentHeader{
		IsLast: (header & lastFragmentFlag) != 0,
		Length: length,
	}, nil
}
