package rpc

// RPCCallMessage is the rpc_msg call header per RFC 5531 Section 9.
// It precedes the procedure-specific argument bytes on the wire.
type RPCCallMessage struct {
	XID        uint32
	MsgType    uint32 // 0 = CALL
	RPCVersion uint32 // always 2
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// RPCReplyMessage is the parsed reply preamble. The procedure-specific
// result bytes follow it on the wire.
type RPCReplyMessage struct {
	XID        uint32
	MsgType    uint32 // 1 = REPLY
	ReplyState uint32 // 0 = MSG_ACCEPTED
	Verf       OpaqueAuth
	AcceptStat uint32 // 0 = SUCCESS
}

// OpaqueAuth is the opaque_auth pair carried as both credential and
// verifier in every call and reply.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}
