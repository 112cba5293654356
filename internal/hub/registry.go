package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Connection is the registry's view of one live transport session.
// An empty Nickname means the participant has not sent a message yet.
type Connection struct {
	ID          string
	Nickname    string
	ConnectedAt time.Time

	seq uint64
}

// DisplayName returns the nickname or, when none was set, the guest label.
func (c Connection) DisplayName() string {
	if c.Nickname == "" {
		return GuestName(c.ID)
	}
	return c.Nickname
}

// Registry is the authoritative set of live connections. It is safe for
// concurrent use; every mutation is serialized behind one lock and readers
// always observe a complete entry set.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Connection
	nextSeq uint64
	now     func() time.Time
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Connection),
		now:     time.Now,
	}
}

// Register adds id with no nickname. It reports false and changes nothing
// when id is already registered.
func (r *Registry) Register(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return false
	}
	r.nextSeq++
	r.entries[id] = &Connection{ID: id, ConnectedAt: r.now(), seq: r.nextSeq}
	return true
}

// Unregister removes id and returns the removed entry, or ErrNotFound.
func (r *Registry) Unregister(id string) (Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.entries[id]
	if !exists {
		return Connection{}, ErrNotFound
	}
	delete(r.entries, id)
	return *conn, nil
}

// SetNickname records name for id, or returns ErrNotFound if the connection
// already departed.
func (r *Registry) SetNickname(id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.entries[id]
	if !exists {
		return ErrNotFound
	}
	conn.Nickname = name
	return nil
}

// Lookup returns a copy of the entry for id.
func (r *Registry) Lookup(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.entries[id]
	if !exists {
		return Connection{}, false
	}
	return *conn, true
}

// Snapshot returns a point-in-time copy of every live entry in registration
// order.
func (r *Registry) Snapshot() []Connection {
	r.mu.RLock()
	conns := make([]Connection, 0, len(r.entries))
	for _, conn := range r.entries {
		conns = append(conns, *conn)
	}
	r.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool { return conns[i].seq < conns[j].seq })
	return conns
}

// IDs returns the identifiers of a consistent snapshot, for fan-out.
func (r *Registry) IDs() []string {
	return lo.Map(r.Snapshot(), func(c Connection, _ int) string { return c.ID })
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
