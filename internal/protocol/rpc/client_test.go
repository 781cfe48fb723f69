package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport answers every request with a reply preamble built
// from the scripted header values, echoing the caller's xid unless a
// fixed one is forced.
type scriptedTransport struct {
	msgType     uint32
	replyState  uint32
	acceptState uint32
	result      []byte

	forceXID    uint32
	useForceXID bool

	lastRequest []byte
	pending     bytes.Buffer
}

func okTransport(result []byte) *scriptedTransport {
	return &scriptedTransport{
		msgType:     RPCReply,
		replyState:  RPCMsgAccepted,
		acceptState: RPCSuccess,
		result:      result,
	}
}

func (tr *scriptedTransport) Write(p []byte) (int, error) {
	tr.lastRequest = append([]byte(nil), p...)

	// Request xid sits right after the 4-byte fragment header.
	xid := binary.BigEndian.Uint32(p[4:8])
	if tr.useForceXID {
		xid = tr.forceXID
	}

	var reply bytes.Buffer
	for _, v := range []uint32{xid, tr.msgType, tr.replyState, AuthNone, 0, tr.acceptState} {
		_ = binary.Write(&reply, binary.BigEndian, v)
	}
	reply.Write(tr.result)

	var framed bytes.Buffer
	_ = WriteMessage(&framed, reply.Bytes())
	tr.pending = framed
	return len(p), nil
}

func (tr *scriptedTransport) Read(p []byte) (int, error) {
	return tr.pending.Read(p)
}

func TestClientCall(t *testing.T) {
	t.Run("ReturnsResultPayloadOnSuccess", func(t *testing.T) {
		want := []byte{0, 0, 0, 0, 0xCA, 0xFE, 0xBA, 0xBE}
		client := NewClient(okTransport(want), nil)

		result, err := client.Call(ProgramNFS, NFSVersion, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, want, result)
	})

	t.Run("ReturnsEmptyPayloadWhenReplyHasNone", func(t *testing.T) {
		client := NewClient(okTransport(nil), nil)

		result, err := client.Call(ProgramMount, MountVersion, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("SendsCallHeaderFields", func(t *testing.T) {
		tr := okTransport(nil)
		client := NewClient(tr, nil)

		_, err := client.Call(ProgramMount, MountVersion, 1, []byte{0xAA, 0xBB, 0xCC, 0xDD})
		require.NoError(t, err)

		// Skip fragment header; then xid, msg_type, rpcvers, prog, vers, proc.
		body := tr.lastRequest[4:]
		assert.Equal(t, uint32(RPCCall), binary.BigEndian.Uint32(body[4:8]))
		assert.Equal(t, uint32(RPCVersion), binary.BigEndian.Uint32(body[8:12]))
		assert.Equal(t, uint32(ProgramMount), binary.BigEndian.Uint32(body[12:16]))
		assert.Equal(t, uint32(MountVersion), binary.BigEndian.Uint32(body[16:20]))
		assert.Equal(t, uint32(1), binary.BigEndian.Uint32(body[20:24]))

		// AUTH_NONE credential and verifier, then the argument bytes.
		assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, body[len(body)-4:])
	})

	t.Run("RejectsNonReplyMessageType", func(t *testing.T) {
		tr := okTransport(nil)
		tr.msgType = RPCCall
		client := NewClient(tr, nil)

		_, err := client.Call(ProgramNFS, NFSVersion, 0, nil)
		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "msg_type", perr.Field)
		assert.Equal(t, uint32(RPCCall), perr.Value)
	})

	t.Run("RejectsDeniedReplyState", func(t *testing.T) {
		tr := okTransport(nil)
		tr.replyState = RPCMsgDenied
		client := NewClient(tr, nil)

		_, err := client.Call(ProgramNFS, NFSVersion, 0, nil)
		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "reply_state", perr.Field)
		assert.Equal(t, uint32(RPCMsgDenied), perr.Value)
	})

	t.Run("RejectsFailedAcceptState", func(t *testing.T) {
		for _, state := range []uint32{RPCProgUnavail, RPCProgMismatch, RPCProcUnavail, RPCGarbageArgs} {
			tr := okTransport(nil)
			tr.acceptState = state
			client := NewClient(tr, nil)

			_, err := client.Call(ProgramNFS, NFSVersion, 0, nil)
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "accept_state", perr.Field)
			assert.Equal(t, state, perr.Value)
		}
	})

	t.Run("RejectsMismatchedReplyXID", func(t *testing.T) {
		tr := okTransport(nil)
		tr.forceXID = 0xDEAD0001
		tr.useForceXID = true
		client := NewClient(tr, nil)

		_, err := client.Call(ProgramNFS, NFSVersion, 0, nil)
		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "xid", perr.Field)
	})

	t.Run("RejectsTruncatedPreamble", func(t *testing.T) {
		tr := &scriptedTransport{}
		var framed bytes.Buffer
		_ = WriteMessage(&framed, []byte{0x00, 0x00}) // 2-byte reply body
		tr.pending = framed

		// Write must not clobber the scripted short reply.
		client := NewClient(readOnly{tr}, nil)
		_, err := client.Call(ProgramNFS, NFSVersion, 0, nil)

		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
	})
}

// readOnly passes reads through and swallows writes.
type readOnly struct {
	tr *scriptedTransport
}

func (r readOnly) Read(p []byte) (int, error)  { return r.tr.pending.Read(p) }
func (r readOnly) Write(p []byte) (int, error) { return len(p), nil }

func TestNextXID(t *testing.T) {
	a := NextXID()
	b := NextXID()
	assert.Equal(t, a+1, b, "xids increment monotonically")
}
