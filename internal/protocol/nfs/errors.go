package nfs

import "fmt"

// statusText maps NFSv3 status codes to their RFC 1813 names.
var statusText = map[uint32]string{
	NFS3OK:             "NFS3_OK",
	NFS3ErrPerm:        "NFS3ERR_PERM",
	NFS3ErrNoEnt:       "NFS3ERR_NOENT",
	NFS3ErrIO:          "NFS3ERR_IO",
	NFS3ErrAcces:       "NFS3ERR_ACCES",
	NFS3ErrExist:       "NFS3ERR_EXIST",
	NFS3ErrNotDir:      "NFS3ERR_NOTDIR",
	NFS3ErrIsDir:       "NFS3ERR_ISDIR",
	NFS3ErrInval:       "NFS3ERR_INVAL",
	NFS3ErrFBig:        "NFS3ERR_FBIG",
	NFS3ErrNoSpc:       "NFS3ERR_NOSPC",
	NFS3ErrRofs:        "NFS3ERR_ROFS",
	NFS3ErrNameTooLong: "NFS3ERR_NAMETOOLONG",
	NFS3ErrNotEmpty:    "NFS3ERR_NOTEMPTY",
	NFS3ErrStale:       "NFS3ERR_STALE",
	NFS3ErrBadHandle:   "NFS3ERR_BADHANDLE",
	NFS3ErrServerFault: "NFS3ERR_SERVERFAULT",
}

// StatusText returns the RFC 1813 name for an NFS status code.
func StatusText(status uint32) string {
	if text, ok := statusText[status]; ok {
		return text
	}
	return fmt.Sprintf("NFS3ERR_%d", status)
}

// StatusError reports a procedure that the server executed but
// answered with a non-OK NFS status. It is an application-level
// outcome, distinct from transport and RPC protocol failures.
type StatusError struct {
	Proc   string
	Status uint32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nfs %s failed: %s", e.Proc, StatusText(e.Status))
}
