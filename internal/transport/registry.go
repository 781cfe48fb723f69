package transport

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cubbit/nfsclient/internal/logger"
)

// Registry tracks every open connection so fatal paths can tear all of
// them down at once. It is owned by the application, not hidden in
// package state, and its mutations are safe across sessions.
type Registry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*Conn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]*Conn)}
}

func (r *Registry) register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.id] = c
}

func (r *Registry) unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every registered connection best-effort, swallowing
// per-connection errors, and returns how many closed cleanly.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	snapshot := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.Unlock()

	closed := 0
	for _, c := range snapshot {
		if err := c.Close(); err != nil {
			logger.Warn("Error closing connection to %s: %v", c.addr, err)
			continue
		}
		closed++
	}

	logger.Debug("Closed all registered connections, amount: %d", closed)
	return closed
}
