package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubbit/nfsclient/internal/nfstest"
	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
	"github.com/cubbit/nfsclient/internal/transport"
)

func testOptions(port int) Options {
	return Options{
		Host:      "127.0.0.1",
		Port:      port,
		Transport: transport.Options{Timeout: time.Second},
		Credentials: &rpc.Credentials{
			Flavor:      rpc.AuthUnix,
			MachineName: "clienttest",
			UID:         1000,
			GID:         1000,
		},
	}
}

func startServer(t *testing.T) *nfstest.Server {
	t.Helper()
	server, err := nfstest.NewServer()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	return server
}

func TestMountLifecycle(t *testing.T) {
	server := startServer(t)

	m := NewMount(testOptions(server.Port()))
	require.NoError(t, m.Connect())
	defer m.Disconnect()

	require.NoError(t, m.Null())

	handle, err := m.Mnt("/export")
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	assert.Equal(t, 1, server.MountCalls())

	require.NoError(t, m.Umnt())
	// second Umnt is a no-op
	require.NoError(t, m.Umnt())
}

func TestNFSRoundTrip(t *testing.T) {
	server := startServer(t)
	opts := testOptions(server.Port())

	m := NewMount(opts)
	require.NoError(t, m.Connect())
	defer m.Disconnect()
	root, err := m.Mnt("/export")
	require.NoError(t, err)

	n := NewNFS(opts)
	require.NoError(t, n.Connect())
	defer n.Disconnect()

	require.NoError(t, n.Null())

	dirHandle, err := n.Mkdir(root, "docs", 0o755)
	require.NoError(t, err)
	require.NotEmpty(t, dirHandle)

	fileHandle, err := n.Create(dirHandle, "note.txt", nfs.CreateUnchecked, 0o644)
	require.NoError(t, err)
	require.NotEmpty(t, fileHandle)

	payload := []byte("hello over the wire")
	count, err := n.Write(fileHandle, 0, nfs.FileSyncWrite, payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(payload)), count)

	result, err := n.Read(fileHandle, 0, 1024)
	require.NoError(t, err)
	assert.Equal(t, payload, result.Data)
	assert.True(t, result.EOF)

	attr, err := n.GetAttr(fileHandle)
	require.NoError(t, err)
	assert.Equal(t, uint32(nfs.NF3REG), attr.Type)
	assert.Equal(t, uint64(len(payload)), attr.Size)

	looked, err := n.Lookup(dirHandle, "note.txt")
	require.NoError(t, err)
	assert.Equal(t, fileHandle, looked)
}

func TestNFSStatusErrors(t *testing.T) {
	server := startServer(t)
	opts := testOptions(server.Port())

	m := NewMount(opts)
	require.NoError(t, m.Connect())
	defer m.Disconnect()
	root, err := m.Mnt("/export")
	require.NoError(t, err)

	n := NewNFS(opts)
	require.NoError(t, n.Connect())
	defer n.Disconnect()

	_, err = n.Lookup(root, "missing")
	var statusErr *nfs.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, uint32(nfs.NFS3ErrNoEnt), statusErr.Status)

	// guarded create of an existing name is rejected by the server
	_, err = n.Create(root, "dup.txt", nfs.CreateUnchecked, 0o644)
	require.NoError(t, err)
	_, err = n.Create(root, "dup.txt", nfs.CreateGuarded, 0o644)
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, uint32(nfs.NFS3ErrExist), statusErr.Status)

	err = n.Remove(root, "nope.txt")
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, uint32(nfs.NFS3ErrNoEnt), statusErr.Status)
}

func TestRenameMovesAcrossDirectories(t *testing.T) {
	server := startServer(t)
	opts := testOptions(server.Port())

	m := NewMount(opts)
	require.NoError(t, m.Connect())
	defer m.Disconnect()
	root, err := m.Mnt("/export")
	require.NoError(t, err)

	n := NewNFS(opts)
	require.NoError(t, n.Connect())
	defer n.Disconnect()

	srcDir, err := n.Mkdir(root, "src", 0o755)
	require.NoError(t, err)
	dstDir, err := n.Mkdir(root, "dst", 0o755)
	require.NoError(t, err)

	_, err = n.Create(srcDir, "file.bin", nfs.CreateUnchecked, 0o644)
	require.NoError(t, err)

	require.NoError(t, n.Rename(srcDir, "file.bin", dstDir, "moved.bin"))

	_, err = n.Lookup(srcDir, "file.bin")
	assert.Error(t, err)
	_, err = n.Lookup(dstDir, "moved.bin")
	assert.NoError(t, err)
}
