package xdr

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Opaque Tests
// ============================================================================

func TestEncodeOpaque(t *testing.T) {
	t.Run("EncodesEmptyAsLengthZero", func(t *testing.T) {
		buf := new(bytes.Buffer)
		err := EncodeOpaque(buf, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 0}, buf.Bytes())
	})

	t.Run("EncodesAlignedDataWithoutPadding", func(t *testing.T) {
		buf := new(bytes.Buffer)
		err := EncodeOpaque(buf, []byte{0x01, 0x02, 0x03, 0x04})
		require.NoError(t, err)

		expected := []byte{
			0, 0, 0, 4, // length
			0x01, 0x02, 0x03, 0x04, // data
		}
		assert.Equal(t, expected, buf.Bytes())
	})

	t.Run("PadsToFourByteBoundary", func(t *testing.T) {
		buf := new(bytes.Buffer)
		err := EncodeOpaque(buf, []byte{0xAA, 0xBB, 0xCC}) // needs 1 padding byte
		require.NoError(t, err)

		expected := []byte{
			0, 0, 0, 3, // length
			0xAA, 0xBB, 0xCC, 0, // data + padding
		}
		assert.Equal(t, expected, buf.Bytes())
	})

	t.Run("EncodedLengthIsAlwaysMultipleOfFour", func(t *testing.T) {
		for size := range 17 {
			buf := new(bytes.Buffer)
			data := bytes.Repeat([]byte{0x5A}, size)
			require.NoError(t, EncodeOpaque(buf, data))
			assert.Equal(t, 0, buf.Len()%4, "size %d should align", size)
		}
	})
}

func TestDecodeOpaque(t *testing.T) {
	t.Run("RoundTripsArbitraryData", func(t *testing.T) {
		cases := [][]byte{
			{},
			{0x00},
			{0x01, 0x02},
			{0xDE, 0xAD, 0xBE, 0xEF},
			bytes.Repeat([]byte{0x42}, 1000),
		}

		for _, data := range cases {
			buf := new(bytes.Buffer)
			require.NoError(t, EncodeOpaque(buf, data))

			decoded, err := DecodeOpaque(buf)
			require.NoError(t, err)
			assert.Equal(t, data, decoded)
			assert.Zero(t, buf.Len(), "decoder must consume padding")
		}
	})

	t.Run("RejectsTruncatedData", func(t *testing.T) {
		buf := new(bytes.Buffer)
		_ = binary.Write(buf, binary.BigEndian, uint32(8))
		_, _ = buf.Write([]byte{0x01, 0x02}) // only 2 of 8 bytes

		_, err := DecodeOpaque(buf)
		require.Error(t, err)
	})

	t.Run("RejectsTruncatedLengthPrefix", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0, 0})
		_, err := DecodeOpaque(buf)
		require.Error(t, err)
	})

	t.Run("RejectsExcessiveLength", func(t *testing.T) {
		buf := new(bytes.Buffer)
		_ = binary.Write(buf, binary.BigEndian, uint32(2*MaxOpaqueLength))

		_, err := DecodeOpaque(buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})

	t.Run("RejectsMissingPadding", func(t *testing.T) {
		buf := new(bytes.Buffer)
		_ = binary.Write(buf, binary.BigEndian, uint32(3))
		_, _ = buf.Write([]byte{0x01, 0x02, 0x03}) // padding byte absent

		_, err := DecodeOpaque(buf)
		require.Error(t, err)
	})
}

// ============================================================================
// Integer Tests
// ============================================================================

func TestUint32(t *testing.T) {
	t.Run("EncodesBigEndian", func(t *testing.T) {
		buf := new(bytes.Buffer)
		require.NoError(t, EncodeUint32(buf, 0x01020304))
		assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf.Bytes())
	})

	t.Run("RoundTrips", func(t *testing.T) {
		for _, v := range []uint32{0, 1, 0xFFFF, 0xDEADBEEF, 0xFFFFFFFF} {
			buf := new(bytes.Buffer)
			require.NoError(t, EncodeUint32(buf, v))

			decoded, err := DecodeUint32(buf)
			require.NoError(t, err)
			assert.Equal(t, v, decoded)
		}
	})

	t.Run("RejectsTruncatedBuffer", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0x01, 0x02})
		_, err := DecodeUint32(buf)
		require.Error(t, err)
	})
}

func TestUint64(t *testing.T) {
	t.Run("RoundTrips", func(t *testing.T) {
		for _, v := range []uint64{0, 42, 1 << 40, 0xFFFFFFFFFFFFFFFF} {
			buf := new(bytes.Buffer)
			require.NoError(t, EncodeUint64(buf, v))

			decoded, err := DecodeUint64(buf)
			require.NoError(t, err)
			assert.Equal(t, v, decoded)
		}
	})
}

// ============================================================================
// Array and String Tests
// ============================================================================

func TestEncodeUint32Array(t *testing.T) {
	t.Run("EncodesEmptyAsCountZero", func(t *testing.T) {
		buf := new(bytes.Buffer)
		require.NoError(t, EncodeUint32Array(buf, nil))
		assert.Equal(t, []byte{0, 0, 0, 0}, buf.Bytes())
	})

	t.Run("EncodesCountThenElements", func(t *testing.T) {
		buf := new(bytes.Buffer)
		require.NoError(t, EncodeUint32Array(buf, []uint32{100, 200}))

		expected := []byte{
			0, 0, 0, 2, // count
			0, 0, 0, 100, // first element
			0, 0, 0, 200, // second element
		}
		assert.Equal(t, expected, buf.Bytes())
	})
}

func TestString(t *testing.T) {
	t.Run("RoundTrips", func(t *testing.T) {
		for _, s := range []string{"", "a", "hello", "/export/shared"} {
			buf := new(bytes.Buffer)
			require.NoError(t, EncodeString(buf, s))

			decoded, err := DecodeString(buf)
			require.NoError(t, err)
			assert.Equal(t, s, decoded)
		}
	})
}

func TestDecodeBool(t *testing.T) {
	t.Run("DecodesZeroAndOne", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0, 0, 0, 1, 0, 0, 0, 0})

		v, err := DecodeBool(buf)
		require.NoError(t, err)
		assert.True(t, v)

		v, err = DecodeBool(buf)
		require.NoError(t, err)
		assert.False(t, v)
	})

	t.Run("RejectsOtherValues", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0, 0, 0, 7})
		_, err := DecodeBool(buf)
		require.Error(t, err)
	})
}
