package server

import (
	"sync"
	"time"

	"vpnrelay/metrics"
)

// Table is the shared session, route and config state guarded by a single
// coarse mutex. Sessions, their routes, and their config live in one table
// so a session's lifecycle and the lifecycle of its routes/config can never
// be observed out of step with each other.
type Table struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	routes   map[string][]RouteEntry
	configs  map[string]ConfigEntry

	metrics *metrics.Server // may be nil in tests
}

func NewTable(m *metrics.Server) *Table {
	return &Table{
		sessions: make(map[string]*Session),
		routes:   make(map[string][]RouteEntry),
		configs:  make(map[string]ConfigEntry),
		metrics:  m,
	}
}

// Add registers a new session, created by the acceptor on an inbound
// connection.
func (t *Table) Add(s *Session) {
	s.touch()
	t.mu.Lock()
	t.sessions[s.ID] = s
	t.mu.Unlock()
	if t.metrics != nil {
		t.metrics.SessionAdded()
	}
}

// Get returns the session for id, or (nil, false) if absent.
func (t *Table) Get(id string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[id]
	return s, ok
}

// Touch refreshes last_seen on any successful read or keepalive.
func (t *Table) Touch(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok {
		s.touch()
	}
}

// Ids returns a snapshot of the current session ids, for the worker loop's
// per-pass iteration.
func (t *Table) Ids() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Delete removes a session and purges its routes and config together: the
// three maps are mutated under one lock acquisition so they are never
// observed out of sync. The session's stream, if any, is closed so the
// underlying connection doesn't outlive the table entry.
func (t *Table) Delete(id string) {
	t.mu.Lock()
	s, existed := t.sessions[id]
	delete(t.sessions, id)
	delete(t.routes, id)
	delete(t.configs, id)
	t.mu.Unlock()
	if existed {
		if s.Stream != nil {
			_ = s.Stream.Close()
		}
		if t.metrics != nil {
			t.metrics.SessionRemoved()
		}
	}
}

// GetOrInsertConfig returns the session's config, inserting def on first
// access.
func (t *Table) GetOrInsertConfig(id string, def ConfigEntry) ConfigEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cfg, ok := t.configs[id]; ok {
		return cfg
	}
	t.configs[id] = def
	return def
}

// SetRoutes replaces the session's stored route list.
func (t *Table) SetRoutes(id string, routes []RouteEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[id] = routes
}

// Routes returns the session's stored routes. Routes are accepted and
// acknowledged but never consulted for forwarding; this query method is
// the only consumer, used by tests and any future forwarding path.
func (t *Table) Routes(id string) []RouteEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]RouteEntry(nil), t.routes[id]...)
}

// StaleIds returns ids whose last_seen is older than threshold, for the
// reaper.
func (t *Table) StaleIds(threshold time.Duration) []string {
	cutoff := time.Now().Add(-threshold)
	t.mu.RLock()
	defer t.mu.RUnlock()
	var stale []string
	for id, s := range t.sessions {
		if s.LastSeen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	return stale
}

// Len reports the number of live sessions, for tests.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// CloseAll closes every session's stream and clears the tables. This is the
// final shutdown stage: drop the session table, closing all streams.
func (t *Table) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sessions {
		_ = s.Stream.Close()
	}
	t.sessions = make(map[string]*Session)
	t.routes = make(map[string][]RouteEntry)
	t.configs = make(map[string]ConfigEntry)
}
