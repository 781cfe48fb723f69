package rpc

import (
	"bytes"
	"fmt"
	"time"

	"github.com/cubbit/nfsclient/internal/protocol/xdr"
)

// Credentials describes the identity presented to the server on every
// call. A nil *Credentials means AUTH_NONE.
type Credentials struct {
	// Flavor selects the authentication flavor (AuthNone or AuthUnix)
	Flavor uint32

	// MachineName identifies the calling host (AUTH_UNIX only)
	MachineName string

	// UID is the caller's user ID (AUTH_UNIX only)
	UID uint32

	// GID is the caller's primary group ID (AUTH_UNIX only)
	GID uint32

	// AuxGIDs lists auxiliary group IDs in order (AUTH_UNIX only)
	AuxGIDs []uint32
}

// EncodeCredential builds the opaque credential for the given
// credentials. The AUTH_UNIX body is, per RFC 5531 Appendix A:
// stamp, machine name (XDR string), uid, gid, auxiliary gid array.
//
// The stamp is the low 16 bits of the current Unix time, matching what
// servers expect as a loose freshness nonce.
//
// Auxiliary gid quirk: a list containing exactly one gid of value 0 is
// encoded as an empty list (count 0). Linux servers treat the two forms
// identically and some reject the redundant sentinel entry.
func EncodeCredential(creds *Credentials) (OpaqueAuth, error) {
	if creds == nil || creds.Flavor == AuthNone {
		return OpaqueAuth{Flavor: AuthNone, Body: []byte{}}, nil
	}

	if creds.Flavor != AuthUnix {
		return OpaqueAuth{}, fmt.Errorf("flavor %d: %w", creds.Flavor, ErrUnsupportedAuthFlavor)
	}

	var buf bytes.Buffer

	stamp := uint32(time.Now().Unix()) & 0xffff
	if err := xdr.EncodeUint32(&buf, stamp); err != nil {
		return OpaqueAuth{}, fmt.Errorf("write stamp: %w", err)
	}

	if err := xdr.EncodeString(&buf, creds.MachineName); err != nil {
		return OpaqueAuth{}, fmt.Errorf("write machine name: %w", err)
	}

	if err := xdr.EncodeUint32(&buf, creds.UID); err != nil {
		return OpaqueAuth{}, fmt.Errorf("write uid: %w", err)
	}

	if err := xdr.EncodeUint32(&buf, creds.GID); err != nil {
		return OpaqueAuth{}, fmt.Errorf("write gid: %w", err)
	}

	auxGIDs := creds.AuxGIDs
	if len(auxGIDs) == 1 && auxGIDs[0] == 0 {
		auxGIDs = nil
	}
	if err := xdr.EncodeUint32Array(&buf, auxGIDs); err != nil {
		return OpaqueAuth{}, fmt.Errorf("write aux gids: %w", err)
	}

	return OpaqueAuth{Flavor: AuthUnix, Body: buf.Bytes()}, nil
}

// NoneVerifier returns the AUTH_NONE verifier sent with every call.
func NoneVerifier() OpaqueAuth {
	return OpaqueAuth{Flavor: AuthNone, Body: []byte{}}
}
