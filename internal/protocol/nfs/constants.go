package nfs

// Port is the well-known nfsd port.
const Port = 2049

// NFSv3 Procedure Numbers
// These identify the NFS operations as defined in RFC 1813.
const (
	// NFSProcNull - Do nothing (connectivity test)
	NFSProcNull = 0

	// NFSProcGetAttr - Get file attributes
	NFSProcGetAttr = 1

	// NFSProcLookup - Lookup filename
	NFSProcLookup = 3

	// NFSProcRead - Read from file
	NFSProcRead = 6

	// NFSProcWrite - Write to file
	NFSProcWrite = 7

	// NFSProcCreate - Create a file
	NFSProcCreate = 8

	// NFSProcMkdir - Create a directory
	NFSProcMkdir = 9

	// NFSProcRemove - Remove a file
	NFSProcRemove = 12

	// NFSProcRename - Rename a file or directory
	NFSProcRename = 14
)

// NFS Status Codes
// These are the error codes returned by NFSv3 procedures,
// defined in RFC 1813 Section 3.3.
const (
	// NFS3OK - Success
	NFS3OK = 0

	// NFS3ErrPerm - Not owner
	NFS3ErrPerm = 1

	// NFS3ErrNoEnt - No such file or directory
	NFS3ErrNoEnt = 2

	// NFS3ErrIO - I/O error
	NFS3ErrIO = 5

	// NFS3ErrAcces - Permission denied
	NFS3ErrAcces = 13

	// NFS3ErrExist - File exists
	NFS3ErrExist = 17

	// NFS3ErrNotDir - Not a directory
	NFS3ErrNotDir = 20

	// NFS3ErrIsDir - Is a directory
	NFS3ErrIsDir = 21

	// NFS3ErrInval - Invalid argument
	NFS3ErrInval = 22

	// NFS3ErrFBig - File too large
	NFS3ErrFBig = 27

	// NFS3ErrNoSpc - No space left on device
	NFS3ErrNoSpc = 28

	// NFS3ErrRofs - Read-only file system
	NFS3ErrRofs = 30

	// NFS3ErrNameTooLong - Filename too long
	NFS3ErrNameTooLong = 63

	// NFS3ErrNotEmpty - Directory not empty
	NFS3ErrNotEmpty = 66

	// NFS3ErrStale - Stale file handle
	NFS3ErrStale = 70

	// NFS3ErrBadHandle - Invalid file handle
	NFS3ErrBadHandle = 10001

	// NFS3ErrServerFault - Undefined server error
	NFS3ErrServerFault = 10006
)

// Write Stability Levels (RFC 1813 Section 3.3.7)
// These control when the server must commit written data.
const (
	// UnstableWrite (0): data may be cached in server memory
	UnstableWrite = 0

	// DataSyncWrite (1): data committed, metadata may lag
	DataSyncWrite = 1

	// FileSyncWrite (2): data and metadata committed
	FileSyncWrite = 2
)

// Create Modes (RFC 1813 Section 3.3.8)
const (
	// CreateUnchecked (0): create without existence check
	CreateUnchecked = 0

	// CreateGuarded (1): fail with NFS3ErrExist if the name exists
	CreateGuarded = 1

	// CreateExclusive (2): exclusive create keyed by a verifier
	CreateExclusive = 2
)

// File types (ftype3, RFC 1813 Section 2.5.1)
const (
	// NF3REG - regular file
	NF3REG = 1

	// NF3DIR - directory
	NF3DIR = 2
)
