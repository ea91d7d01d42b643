package registry

import (
	"sync"

	"workshop-chat-service/internal/broadcast"
)

// Registry maps a user id to the set of live connection handles it currently
// owns. Mutations on one user's set serialize on that entry's lock; operations
// on different users never contend. An entry is removed the moment its set
// drains so idle users leave no state behind.
type Registry struct {
	mu      sync.RWMutex
	entries map[int]*entry
}

type entry struct {
	mu    sync.Mutex
	conns map[string]broadcast.Connection
	// dead marks an entry already unlinked from the map; a registration that
	// raced the removal retakes a fresh entry instead of writing into it.
	dead bool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int]*entry)}
}

// Register adds a connection to the user's set. Registering the same handle
// twice is a no-op.
func (r *Registry) Register(userID int, conn broadcast.Connection) {
	for {
		r.mu.Lock()
		e, ok := r.entries[userID]
		if !ok {
			e = &entry{conns: make(map[string]broadcast.Connection)}
			r.entries[userID] = e
		}
		r.mu.Unlock()

		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		e.conns[conn.ID()] = conn
		e.mu.Unlock()
		return
	}
}

// Unregister removes a connection from the user's set, deleting the user entry
// when the set drains. Unknown users and handles are ignored.
func (r *Registry) Unregister(userID int, connID string) {
	r.mu.RLock()
	e, ok := r.entries[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	delete(e.conns, connID)
	drained := len(e.conns) == 0
	if drained {
		e.dead = true
	}
	e.mu.Unlock()

	if drained {
		r.mu.Lock()
		if current, ok := r.entries[userID]; ok && current == e {
			delete(r.entries, userID)
		}
		r.mu.Unlock()
	}
}

// ConnectionsOf returns a snapshot of the user's live connections.
func (r *Registry) ConnectionsOf(userID int) []broadcast.Connection {
	r.mu.RLock()
	e, ok := r.entries[userID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	conns := make([]broadcast.Connection, 0, len(e.conns))
	for _, conn := range e.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Users reports how many users currently hold at least one connection.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

var _ broadcast.UserConnections = (*Registry)(nil)
