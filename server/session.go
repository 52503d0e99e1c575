// Package server implements the relay server's session table, acceptor,
// worker loop, reaper, and supervisor.
package server

import (
	"time"

	"github.com/google/uuid"

	"vpnrelay/protocol"
	"vpnrelay/transport"
)

// Session is the server-side per-connection state, registered in and
// removed from the session table. The table lock does not cover stream
// I/O: the worker fetches the session with Table.Get and reads and writes
// its Stream directly, outside the lock, while Table.Delete and
// Table.CloseAll close streams without waiting for that I/O.
type Session struct {
	ID       string // remote endpoint string, e.g. "10.0.0.5:51422"
	Stream   *transport.Stream
	LastSeen time.Time
	TraceID  uuid.UUID // log correlation only; never used for lookup/routing
}

// touch refreshes LastSeen to now.
func (s *Session) touch() {
	s.LastSeen = time.Now()
}

// ConfigEntry and RouteEntry snapshots returned by Table queries are plain
// values so callers can't mutate table state without going through a
// Table method.
type ConfigEntry = protocol.VpnConfig
type RouteEntry = protocol.RouteEntry
