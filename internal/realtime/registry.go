package realtime

import "sync"

// Registry tracks live connections keyed by principal ID.
//
// A principal may hold several connections at once (the same tablet open
// in two rooms, an admin console plus a phone); registering a second
// connection never displaces the first. The registry is purely in-memory
// and rebuilt from nothing on restart.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[*Conn]struct{})}
}

// Add registers a connection under its principal ID.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	set, ok := r.conns[c.PrincipalID()]
	if !ok {
		set = make(map[*Conn]struct{})
		r.conns[c.PrincipalID()] = set
	}
	set[c] = struct{}{}
	r.mu.Unlock()
}

// Remove deregisters a connection. Only the call that actually removes
// the connection from the set closes its send channel, so a double
// Remove cannot double-close.
func (r *Registry) Remove(c *Conn) {
	r.mu.Lock()
	set, ok := r.conns[c.PrincipalID()]
	existed := false
	if ok {
		_, existed = set[c]
		delete(set, c)
		if len(set) == 0 {
			delete(r.conns, c.PrincipalID())
		}
	}
	r.mu.Unlock()

	if existed {
		c.closeSend()
	}
}

// Connections returns a snapshot of the connections held by a principal.
func (r *Registry) Connections(principalID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[principalID]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every live connection.
func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Conn
	for _, set := range r.conns {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the total number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}

// CloseAll disconnects everything, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var all []*Conn
	for id, set := range r.conns {
		for c := range set {
			all = append(all, c)
		}
		delete(r.conns, id)
	}
	r.mu.Unlock()

	for _, c := range all {
		c.closeSend()
		c.closeSocket()
	}
}
