package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// unixBody decodes the AUTH_UNIX credential body for assertions.
type unixBody struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	AuxGIDs     []uint32
}

func decodeUnixBody(t *testing.T, body []byte) unixBody {
	t.Helper()
	reader := bytes.NewReader(body)

	stamp, err := xdr.DecodeUint32(reader)
	require.NoError(t, err)
	name, err := xdr.DecodeString(reader)
	require.NoError(t, err)
	uid, err := xdr.DecodeUint32(reader)
	require.NoError(t, err)
	gid, err := xdr.DecodeUint32(reader)
	require.NoError(t, err)

	count, err := xdr.DecodeUint32(reader)
	require.NoError(t, err)
	aux := make([]uint32, 0, count)
	for range count {
		v, err := xdr.DecodeUint32(reader)
		require.NoError(t, err)
		aux = append(aux, v)
	}

	assert.Zero(t, reader.Len(), "credential body must be fully consumed")
	return unixBody{Stamp: stamp, MachineName: name, UID: uid, GID: gid, AuxGIDs: aux}
}

func TestEncodeCredential(t *testing.T) {
	t.Run("NilCredentialsEncodeAsAuthNone", func(t *testing.T) {
		auth, err := EncodeCredential(nil)
		require.NoError(t, err)
		assert.Equal(t, uint32(AuthNone), auth.Flavor)
		assert.Empty(t, auth.Body)
	})

	t.Run("AuthNoneFlavorEncodesEmptyBody", func(t *testing.T) {
		auth, err := EncodeCredential(&Credentials{Flavor: AuthNone})
		require.NoError(t, err)
		assert.Equal(t, uint32(AuthNone), auth.Flavor)
		assert.Empty(t, auth.Body)
	})

	t.Run("AuthUnixEncodesIdentity", func(t *testing.T) {
		auth, err := EncodeCredential(&Credentials{
			Flavor:      AuthUnix,
			MachineName: "sim-08",
			UID:         6120,
			GID:         30142,
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(AuthUnix), auth.Flavor)

		body := decodeUnixBody(t, auth.Body)
		assert.Equal(t, "sim-08", body.MachineName)
		assert.Equal(t, uint32(6120), body.UID)
		assert.Equal(t, uint32(30142), body.GID)
		assert.Empty(t, body.AuxGIDs)
		assert.Less(t, body.Stamp, uint32(0x10000), "stamp is 16 bits")
	})

	t.Run("EmptyAuxGIDListEncodesCountZero", func(t *testing.T) {
		auth, err := EncodeCredential(&Credentials{
			Flavor: AuthUnix, MachineName: "sim-08", UID: 6120, GID: 30142,
		})
		require.NoError(t, err)

		body := decodeUnixBody(t, auth.Body)
		assert.Empty(t, body.AuxGIDs)
	})

	t.Run("SingleZeroAuxGIDEncodesCountZero", func(t *testing.T) {
		auth, err := EncodeCredential(&Credentials{
			Flavor: AuthUnix, MachineName: "sim-08", UID: 6120, GID: 30142,
			AuxGIDs: []uint32{0},
		})
		require.NoError(t, err)

		body := decodeUnixBody(t, auth.Body)
		assert.Empty(t, body.AuxGIDs)
	})

	t.Run("AuxGIDsEncodeCountThenValues", func(t *testing.T) {
		auth, err := EncodeCredential(&Credentials{
			Flavor: AuthUnix, MachineName: "sim-08", UID: 6120, GID: 30142,
			AuxGIDs: []uint32{100, 200},
		})
		require.NoError(t, err)

		body := decodeUnixBody(t, auth.Body)
		assert.Equal(t, []uint32{100, 200}, body.AuxGIDs)
	})

	t.Run("BodyIsFourByteAligned", func(t *testing.T) {
		auth, err := EncodeCredential(&Credentials{
			Flavor: AuthUnix, MachineName: "odd", UID: 1, GID: 1, // 3-byte name forces padding
		})
		require.NoError(t, err)
		assert.Equal(t, 0, len(auth.Body)%4)
	})

	t.Run("RejectsUnknownFlavor", func(t *testing.T) {
		_, err := EncodeCredential(&Credentials{Flavor: 6}) // AUTH_RPCSEC_GSS
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedAuthFlavor)
	})
}

func TestNoneVerifier(t *testing.T) {
	verf := NoneVerifier()
	assert.Equal(t, uint32(AuthNone), verf.Flavor)
	assert.Empty(t, verf.Body)

	// On the wire this is exactly two zero words.
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, verf.Flavor)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(verf.Body)))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, buf.Bytes())
}
