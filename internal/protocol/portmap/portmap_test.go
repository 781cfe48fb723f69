package portmap

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPortArgsEncode(t *testing.T) {
	args := &GetPortArgs{Program: 100003, Version: 3, Protocol: ProtoTCP}

	encoded, err := args.Encode()
	require.NoError(t, err)
	require.Len(t, encoded, 16, "mapping is four uint32 fields")

	assert.Equal(t, uint32(100003), binary.BigEndian.Uint32(encoded[0:4]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(encoded[4:8]))
	assert.Equal(t, uint32(6), binary.BigEndian.Uint32(encoded[8:12]))
	assert.Equal(t, uint32(0), binary.BigEndian.Uint32(encoded[12:16]), "port field is ignored on queries")
}

func TestDecodeGetPortResult(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x08, 0x01}) // 2049

	port, err := DecodeGetPortResult(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(2049), port)
}

func TestDecodeGetPortResultTruncated(t *testing.T) {
	_, err := DecodeGetPortResult([]byte{0x00, 0x08})
	assert.Error(t, err)
}
