package session

import (
	"context"
	"strings"

	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/pkg/client"
)

// The operations below address files by slash-separated paths relative
// to the export root. Paths are resolved component by component on
// every attempt, so they survive rebuilds: a retry after a reconnect
// walks the tree again with the fresh root handle instead of reusing
// handles from the dead generation.

// Null pings nfsd.
func (s *Session) Null(ctx context.Context) error {
	return s.Execute(ctx, "NULL", func(n *client.NFS, _ []byte) error {
		return n.Null()
	})
}

// GetAttr returns the attributes of the object at path.
func (s *Session) GetAttr(ctx context.Context, path string) (*nfs.FileAttr, error) {
	var attr *nfs.FileAttr
	err := s.Execute(ctx, "GETATTR", func(n *client.NFS, root []byte) error {
		handle, err := resolve(n, root, path)
		if err != nil {
			return err
		}
		attr, err = n.GetAttr(handle)
		return err
	})
	return attr, err
}

// Mkdir creates the directory at path with the given permission mode.
func (s *Session) Mkdir(ctx context.Context, path string, mode uint32) error {
	return s.Execute(ctx, "MKDIR", func(n *client.NFS, root []byte) error {
		dir, name, err := resolveParent(n, root, path)
		if err != nil {
			return err
		}
		_, err = n.Mkdir(dir, name, mode)
		return err
	})
}

// Create creates a regular file at path with the given permission
// mode. Creation is unchecked: an existing file is truncated per the
// server's unchecked-create semantics, which also makes retries after
// a rebuild safe.
func (s *Session) Create(ctx context.Context, path string, mode uint32) error {
	return s.Execute(ctx, "CREATE", func(n *client.NFS, root []byte) error {
		dir, name, err := resolveParent(n, root, path)
		if err != nil {
			return err
		}
		_, err = n.Create(dir, name, nfs.CreateUnchecked, mode)
		return err
	})
}

// Write writes data to the file at path starting at offset, with
// file-sync stability so a succeeded write is durable before the call
// returns. Returns the number of bytes the server accepted.
func (s *Session) Write(ctx context.Context, path string, offset uint64, data []byte) (uint32, error) {
	var count uint32
	err := s.Execute(ctx, "WRITE", func(n *client.NFS, root []byte) error {
		handle, err := resolve(n, root, path)
		if err != nil {
			return err
		}
		count, err = n.Write(handle, offset, nfs.FileSyncWrite, data)
		if err == nil && s.metrics != nil {
			s.metrics.RecordBytes("write", int(count))
		}
		return err
	})
	return count, err
}

// Read reads up to count bytes from the file at path starting at
// offset.
func (s *Session) Read(ctx context.Context, path string, offset uint64, count uint32) ([]byte, error) {
	var data []byte
	err := s.Execute(ctx, "READ", func(n *client.NFS, root []byte) error {
		handle, err := resolve(n, root, path)
		if err != nil {
			return err
		}
		result, err := n.Read(handle, offset, count)
		if err != nil {
			return err
		}
		data = result.Data
		if s.metrics != nil {
			s.metrics.RecordBytes("read", len(data))
		}
		return nil
	})
	return data, err
}

// Remove unlinks the file at path.
func (s *Session) Remove(ctx context.Context, path string) error {
	return s.Execute(ctx, "REMOVE", func(n *client.NFS, root []byte) error {
		dir, name, err := resolveParent(n, root, path)
		if err != nil {
			return err
		}
		return n.Remove(dir, name)
	})
}

// Rename moves the object at fromPath to toPath.
func (s *Session) Rename(ctx context.Context, fromPath, toPath string) error {
	return s.Execute(ctx, "RENAME", func(n *client.NFS, root []byte) error {
		fromDir, fromName, err := resolveParent(n, root, fromPath)
		if err != nil {
			return err
		}
		toDir, toName, err := resolveParent(n, root, toPath)
		if err != nil {
			return err
		}
		return n.Rename(fromDir, fromName, toDir, toName)
	})
}

// resolve walks path from root and returns the handle of the final
// component.
func resolve(n *client.NFS, root []byte, path string) ([]byte, error) {
	handle := root
	for _, component := range splitPath(path) {
		var err error
		handle, err = n.Lookup(handle, component)
		if err != nil {
			return nil, err
		}
	}
	return handle, nil
}

// resolveParent walks path up to its final component and returns the
// parent directory handle together with the leaf name.
func resolveParent(n *client.NFS, root []byte, path string) ([]byte, string, error) {
	components := splitPath(path)
	if len(components) == 0 {
		return nil, "", &nfs.StatusError{Proc: "LOOKUP", Status: nfs.NFS3ErrInval}
	}

	parent := components[:len(components)-1]
	leaf := components[len(components)-1]

	handle := root
	for _, component := range parent {
		var err error
		handle, err = n.Lookup(handle, component)
		if err != nil {
			return nil, "", err
		}
	}
	return handle, leaf, nil
}

func splitPath(path string) []string {
	var components []string
	for _, component := range strings.Split(path, "/") {
		if component != "" && component != "." {
			components = append(components, component)
		}
	}
	return components
}
