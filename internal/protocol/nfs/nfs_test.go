package nfs

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// writeFileAttr emits a plausible fattr3 for test replies.
func writeFileAttr(buf *bytes.Buffer, ftype uint32, size uint64) {
	for _, v := range []uint32{ftype, 0644, 1, 1000, 1000} {
		_ = xdr.EncodeUint32(buf, v)
	}
	_ = xdr.EncodeUint64(buf, size)    // size
	_ = xdr.EncodeUint64(buf, 4096)    // used
	_ = xdr.EncodeUint32(buf, 0)       // rdev major
	_ = xdr.EncodeUint32(buf, 0)       // rdev minor
	_ = xdr.EncodeUint64(buf, 1)       // fsid
	_ = xdr.EncodeUint64(buf, 12345)   // fileid
	for range 3 {                      // atime, mtime, ctime
		_ = xdr.EncodeUint32(buf, 1700000000)
		_ = xdr.EncodeUint32(buf, 0)
	}
}

// writeEmptyWcc emits a wcc_data with both halves absent.
func writeEmptyWcc(buf *bytes.Buffer) {
	_ = xdr.EncodeUint32(buf, 0) // no pre-op
	_ = xdr.EncodeUint32(buf, 0) // no post-op
}

func TestDecodeLookupResult(t *testing.T) {
	t.Run("DecodesSuccessWithHandleAndAttrs", func(t *testing.T) {
		handle := []byte{0xFA, 0xCE, 0xB0, 0x0C}
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3OK)
		_ = xdr.EncodeOpaque(&buf, handle)
		_ = xdr.EncodeUint32(&buf, 1) // object attrs present
		writeFileAttr(&buf, NF3REG, 42)
		_ = xdr.EncodeUint32(&buf, 0) // no dir attrs

		result, err := DecodeLookupResult(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), result.Status)
		assert.Equal(t, handle, result.Handle)
		require.NotNil(t, result.Attr)
		assert.Equal(t, uint32(NF3REG), result.Attr.Type)
		assert.Equal(t, uint64(42), result.Attr.Size)
		assert.Nil(t, result.DirAttr)
	})

	t.Run("DecodesFailureWithoutHandle", func(t *testing.T) {
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3ErrNoEnt)
		_ = xdr.EncodeUint32(&buf, 0) // no dir attrs

		result, err := DecodeLookupResult(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNoEnt), result.Status)
		assert.Nil(t, result.Handle)
	})

	t.Run("RejectsTruncatedReply", func(t *testing.T) {
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3OK)
		// handle missing entirely

		_, err := DecodeLookupResult(buf.Bytes())
		require.Error(t, err)
	})
}

func TestDecodeCreateResult(t *testing.T) {
	t.Run("DecodesSuccessWithPostOpHandle", func(t *testing.T) {
		handle := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3OK)
		_ = xdr.EncodeUint32(&buf, 1) // handle present
		_ = xdr.EncodeOpaque(&buf, handle)
		_ = xdr.EncodeUint32(&buf, 0) // no attrs
		writeEmptyWcc(&buf)

		result, err := DecodeCreateResult(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), result.Status)
		assert.Equal(t, handle, result.Handle)
	})

	t.Run("DecodesSuccessWithoutPostOpHandle", func(t *testing.T) {
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3OK)
		_ = xdr.EncodeUint32(&buf, 0) // handle absent
		_ = xdr.EncodeUint32(&buf, 0) // no attrs
		writeEmptyWcc(&buf)

		result, err := DecodeCreateResult(buf.Bytes())
		require.NoError(t, err)
		assert.Nil(t, result.Handle, "caller must fall back to LOOKUP")
	})

	t.Run("DecodesFailureStatus", func(t *testing.T) {
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3ErrExist)
		writeEmptyWcc(&buf)

		result, err := DecodeCreateResult(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrExist), result.Status)
	})
}

func TestEncodeCreateArgs(t *testing.T) {
	t.Run("ExclusiveModeCarriesVerifierNotSattr", func(t *testing.T) {
		args := &CreateArgs{
			DirHandle: []byte{1, 2, 3, 4},
			Name:      "f",
			Mode:      CreateExclusive,
			Verf:      0xDEADBEEF_CAFEF00D,
		}
		encoded, err := args.Encode()
		require.NoError(t, err)

		// dir handle opaque (4+4) + name (4+1+3 pad) + mode (4) + verf (8)
		require.Len(t, encoded, 28)
		assert.Equal(t, uint32(CreateExclusive), binary.BigEndian.Uint32(encoded[16:20]))
		assert.Equal(t, uint64(0xDEADBEEF_CAFEF00D), binary.BigEndian.Uint64(encoded[20:28]))
	})

	t.Run("EncodesDirHandleNameModeAndSattr", func(t *testing.T) {
		args := &CreateArgs{
			DirHandle: []byte{0xAA, 0xBB, 0xCC, 0xDD},
			Name:      "file1.txt",
			Mode:      CreateUnchecked,
			FileMode:  0644,
		}
		data, err := args.Encode()
		require.NoError(t, err)

		reader := bytes.NewReader(data)
		handle, err := xdr.DecodeOpaque(reader)
		require.NoError(t, err)
		assert.Equal(t, args.DirHandle, handle)

		name, err := xdr.DecodeString(reader)
		require.NoError(t, err)
		assert.Equal(t, "file1.txt", name)

		mode, err := xdr.DecodeUint32(reader)
		require.NoError(t, err)
		assert.Equal(t, uint32(CreateUnchecked), mode)
	})
}

func TestDecodeWriteResult(t *testing.T) {
	t.Run("DecodesCountCommittedAndVerifier", func(t *testing.T) {
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3OK)
		writeEmptyWcc(&buf)
		_ = xdr.EncodeUint32(&buf, 42)            // count
		_ = xdr.EncodeUint32(&buf, DataSyncWrite) // committed
		_ = xdr.EncodeUint64(&buf, 0xABCDEF0123456789)

		result, err := DecodeWriteResult(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint32(42), result.Count)
		assert.Equal(t, uint32(DataSyncWrite), result.Committed)
		assert.Equal(t, uint64(0xABCDEF0123456789), result.Verf)
	})

	t.Run("DecodesFailureWithWccOnly", func(t *testing.T) {
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3ErrNoSpc)
		writeEmptyWcc(&buf)

		result, err := DecodeWriteResult(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNoSpc), result.Status)
		assert.Zero(t, result.Count)
	})
}

func TestDecodeReadResult(t *testing.T) {
	t.Run("DecodesDataAndEOF", func(t *testing.T) {
		payload := []byte("the quick brown fox")
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3OK)
		_ = xdr.EncodeUint32(&buf, 0) // no attrs
		_ = xdr.EncodeUint32(&buf, uint32(len(payload)))
		_ = xdr.EncodeUint32(&buf, 1) // eof
		_ = xdr.EncodeOpaque(&buf, payload)

		result, err := DecodeReadResult(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, payload, result.Data)
		assert.Equal(t, uint32(len(payload)), result.Count)
		assert.True(t, result.EOF)
	})

	t.Run("DecodesStaleHandleFailure", func(t *testing.T) {
		var buf bytes.Buffer
		_ = xdr.EncodeUint32(&buf, NFS3ErrStale)
		_ = xdr.EncodeUint32(&buf, 0)

		result, err := DecodeReadResult(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrStale), result.Status)
		assert.Nil(t, result.Data)
	})
}

func TestDecodeRenameResult(t *testing.T) {
	var buf bytes.Buffer
	_ = xdr.EncodeUint32(&buf, NFS3OK)
	writeEmptyWcc(&buf) // fromdir
	writeEmptyWcc(&buf) // todir

	result, err := DecodeRenameResult(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3OK), result.Status)
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Proc: "LOOKUP", Status: NFS3ErrNoEnt}
	assert.Contains(t, err.Error(), "LOOKUP")
	assert.Contains(t, err.Error(), "NFS3ERR_NOENT")

	unknown := &StatusError{Proc: "READ", Status: 4242}
	assert.Contains(t, unknown.Error(), "4242")
}
