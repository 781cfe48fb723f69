package rpc

// RPC Program Numbers
// These identify the RPC programs this client talks to.
const (
	// ProgramPortmap is the port mapper program number (RFC 1833)
	ProgramPortmap = 100000

	// ProgramNFS is the NFS version 3 program number (RFC 1813)
	ProgramNFS = 100003

	// ProgramMount is the Mount protocol program number (RFC 1813 Appendix I)
	ProgramMount = 100005
)

// Program Versions
const (
	// PortmapVersion is the port mapper protocol version
	PortmapVersion = 2

	// NFSVersion is the NFS protocol version
	NFSVersion = 3

	// MountVersion is the Mount protocol version
	MountVersion = 3
)

// RPCVersion is the ONC RPC protocol version (RFC 5531)
const RPCVersion = 2

// RPC Message Types
const (
	// RPCCall indicates an RPC call message
	RPCCall = 0

	// RPCReply indicates an RPC reply message
	RPCReply = 1
)

// RPC Reply States
const (
	// RPCMsgAccepted indicates the RPC call was accepted
	RPCMsgAccepted = 0

	// RPCMsgDenied indicates the RPC call was denied
	RPCMsgDenied = 1
)

// RPC Accept Status
const (
	// RPCSuccess indicates successful RPC execution
	RPCSuccess = 0

	// RPCProgUnavail indicates the program is not exported
	RPCProgUnavail = 1

	// RPCProgMismatch indicates program version mismatch
	RPCProgMismatch = 2

	// RPCProcUnavail indicates the procedure is unavailable
	RPCProcUnavail = 3

	// RPCGarbageArgs indicates the arguments could not be decoded
	RPCGarbageArgs = 4
)

// Authentication Flavors
const (
	// AuthNone carries no authentication data
	AuthNone = 0

	// AuthUnix carries uid/gid/auxiliary groups (AUTH_SYS in RFC 5531)
	AuthUnix = 1
)
