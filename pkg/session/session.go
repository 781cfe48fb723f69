// Package session provides a resilient NFS client session. A session
// owns the mountd and nfsd connections, the root file handle of the
// mounted export, and a retry policy: when a call fails in a way that
// leaves the connection state suspect, the session tears everything
// down, rebuilds it from scratch, and retries the call against the
// fresh state.
//
// File handles obtained through a session are only valid within the
// generation that produced them. Every rebuild bumps the generation and
// re-resolves the root handle, and the path-based operations re-resolve
// intermediate handles on every attempt, so callers never observe a
// stale handle.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	retry "github.com/avast/retry-go"

	"github.com/cubbit/nfsclient/internal/logger"
	"github.com/cubbit/nfsclient/internal/protocol/rpc"
	"github.com/cubbit/nfsclient/internal/ratelimiter"
	"github.com/cubbit/nfsclient/internal/transport"
	"github.com/cubbit/nfsclient/pkg/client"
	"github.com/cubbit/nfsclient/pkg/config"
	"github.com/cubbit/nfsclient/pkg/metrics"
)

// Session is a resilient connection to one exported directory.
//
// All methods are safe for concurrent use, but calls are serialized:
// the underlying RPC engine issues one call at a time per connection.
type Session struct {
	cfg      *config.Config
	metrics  metrics.ClientMetrics
	limiter  *ratelimiter.RateLimiter
	registry *transport.Registry

	mu         sync.Mutex
	mount      *client.Mount
	nfs        *client.NFS
	rootHandle []byte
	generation uint64
	opened     bool

	// rebuildErr is set when a rebuild between attempts fails. Once set
	// the retry loop stops: there is no session left to retry against.
	rebuildErr error
}

// New creates a session from configuration. The session is inert until
// Open is called. A nil clientMetrics disables metrics collection.
func New(cfg *config.Config, clientMetrics metrics.ClientMetrics) *Session {
	return &Session{
		cfg:      cfg,
		metrics:  clientMetrics,
		limiter:  ratelimiter.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		registry: transport.NewRegistry(),
	}
}

// Open builds the session: resolves ports (via the portmapper when
// configured), connects to mountd and nfsd, and mounts the export.
// Any failure is returned as a *SetupError and leaves nothing open.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return nil
	}

	if err := s.build(); err != nil {
		return err
	}
	s.opened = true
	return nil
}

// Close unmounts the export (best effort) and closes every connection
// the session owns. Safe to call repeatedly.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false

	if s.mount != nil {
		if err := s.mount.Umnt(); err != nil {
			logger.Warn("Unmount failed during close: %v", err)
		}
	}
	s.teardown()
	return nil
}

// Root returns the export's root file handle for the current
// generation. The handle becomes invalid after a rebuild.
func (s *Session) Root() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootHandle
}

// Generation returns the number of successful builds this session has
// gone through. It starts at 1 after Open and increments on every
// rebuild.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Execute runs op with the session's retry policy. The op receives the
// NFS client and root handle of the current generation; it must not
// retain either across calls.
//
// Retryable failures (timeouts, resets, protocol violations) trigger a
// full teardown-and-rebuild before the next attempt. Server status
// errors are returned immediately. When the attempt budget runs out the
// last error is wrapped in *RetryExhaustedError; when a rebuild itself
// fails the result is a *SetupError.
//
// Operations are retried whole, so they execute at least once and
// possibly several times. Callers needing exactly-once semantics must
// make their operations idempotent.
func (s *Session) Execute(ctx context.Context, procedure string, op func(n *client.NFS, root []byte) error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	attempts := s.cfg.Retry.Attempts

	err := retry.Do(
		func() error {
			s.mu.Lock()
			if !s.opened {
				s.mu.Unlock()
				return &SetupError{Stage: "execute", Err: fmt.Errorf("session is closed")}
			}
			if s.nfs == nil {
				// a rebuild between attempts failed; nothing to call
				err := s.rebuildErr
				s.mu.Unlock()
				return &SetupError{Stage: "rebuild", Err: err}
			}
			nfsClient, root := s.nfs, s.rootHandle
			s.mu.Unlock()

			start := time.Now()
			opErr := op(nfsClient, root)
			if s.metrics != nil {
				s.metrics.RecordCall(procedure, time.Since(start), opErr)
			}
			return opErr
		},
		retry.Attempts(attempts),
		retry.Delay(s.cfg.Retry.Backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			s.mu.Lock()
			stuck := s.rebuildErr != nil
			s.mu.Unlock()
			return !stuck && isRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("%s attempt %d failed (%v), rebuilding session", procedure, n+1, err)
			if s.metrics != nil {
				s.metrics.RecordRetry(procedure)
			}
			s.rebuild()
		}),
	)

	s.mu.Lock()
	rebuildErr := s.rebuildErr
	s.rebuildErr = nil
	s.mu.Unlock()

	if rebuildErr != nil {
		return &SetupError{Stage: "rebuild", Err: rebuildErr}
	}
	if err != nil && isRetryable(err) {
		if s.metrics != nil {
			s.metrics.RecordRetriesExhausted(procedure)
		}
		return &RetryExhaustedError{Procedure: procedure, Attempts: attempts, Err: err}
	}
	return err
}

// rebuild tears the session down and builds it again. On success the
// generation advances and the root handle is fresh; on failure the
// error is parked in rebuildErr for Execute to surface.
func (s *Session) rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardown()

	if err := s.build(); err != nil {
		s.rebuildErr = err
		if s.metrics != nil {
			s.metrics.RecordRebuild(false)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordRebuild(true)
	}
	logger.Info("Session rebuilt, generation %d", s.generation)
}

// teardown closes every connection and invalidates the root handle.
// Callers must hold s.mu.
func (s *Session) teardown() {
	closed := s.registry.CloseAll()
	logger.Debug("Closed %d connections", closed)
	s.mount = nil
	s.nfs = nil
	s.rootHandle = nil
}

// build connects to mountd and nfsd and mounts the export. Callers
// must hold s.mu. Any failure is returned as a *SetupError with
// everything opened so far closed again.
func (s *Session) build() error {
	creds := s.credentials()

	mountPort := s.cfg.Server.MountPort
	nfsPort := s.cfg.Server.NFSPort

	if s.cfg.Server.UsePortmap {
		var err error
		mountPort, nfsPort, err = s.resolvePorts(creds)
		if err != nil {
			return &SetupError{Stage: "portmap", Err: err}
		}
	}

	mountClient := client.NewMount(client.Options{
		Host:        s.cfg.Server.Host,
		Port:        mountPort,
		Transport:   s.transportOptions(),
		Credentials: creds,
		Registry:    s.registry,
	})
	if err := mountClient.Connect(); err != nil {
		return &SetupError{Stage: "mount", Err: err}
	}

	rootHandle, err := mountClient.Mnt(s.cfg.Server.Export)
	if err != nil {
		s.registry.CloseAll()
		return &SetupError{Stage: "mount", Err: err}
	}

	nfsClient := client.NewNFS(client.Options{
		Host:        s.cfg.Server.Host,
		Port:        nfsPort,
		Transport:   s.transportOptions(),
		Credentials: creds,
		Registry:    s.registry,
	})
	if err := nfsClient.Connect(); err != nil {
		s.registry.CloseAll()
		return &SetupError{Stage: "nfs", Err: err}
	}

	s.mount = mountClient
	s.nfs = nfsClient
	s.rootHandle = rootHandle
	s.generation++
	return nil
}

// resolvePorts asks the portmapper where mountd and nfsd live.
func (s *Session) resolvePorts(creds *rpc.Credentials) (mountPort, nfsPort int, err error) {
	portmapClient := client.NewPortmap(client.Options{
		Host:        s.cfg.Server.Host,
		Port:        s.cfg.Server.PortmapPort,
		Transport:   s.transportOptions(),
		Credentials: creds,
	})
	if err := portmapClient.Connect(); err != nil {
		return 0, 0, err
	}
	defer portmapClient.Disconnect()

	mountPort, err = portmapClient.GetPort(rpc.ProgramMount, rpc.MountVersion)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve mountd port: %w", err)
	}
	if mountPort == 0 {
		return 0, 0, fmt.Errorf("mountd is not registered with the portmapper")
	}

	nfsPort, err = portmapClient.GetPort(rpc.ProgramNFS, rpc.NFSVersion)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve nfsd port: %w", err)
	}
	if nfsPort == 0 {
		return 0, 0, fmt.Errorf("nfsd is not registered with the portmapper")
	}

	return mountPort, nfsPort, nil
}

func (s *Session) transportOptions() transport.Options {
	return transport.Options{
		Timeout:      s.cfg.Transport.Timeout,
		LocalPortMin: s.cfg.Transport.LocalPortMin,
		LocalPortMax: s.cfg.Transport.LocalPortMax,
	}
}

func (s *Session) credentials() *rpc.Credentials {
	if s.cfg.Auth.Flavor != "unix" {
		return nil
	}
	return &rpc.Credentials{
		Flavor:      rpc.AuthUnix,
		MachineName: s.cfg.Auth.MachineName,
		UID:         s.cfg.Auth.UID,
		GID:         s.cfg.Auth.GID,
		AuxGIDs:     s.cfg.Auth.AuxGIDs,
	}
}
