// Package metrics exposes process-local counters and gauges for the relay
// server, backed by github.com/VictoriaMetrics/metrics the way
// R2Northstar-Atlas's pkg/metricsx wires the same library for its API
// server. Unlike metricsx this package does not need the curly-brace label
// helpers since the relay's metrics carry no per-request labels.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// Server holds the named metrics a relay server instance updates.
type Server struct {
	activeSessions int64 // read by the ActiveSessions gauge callback

	FramesData       *metrics.Counter
	FramesKeepalive  *metrics.Counter
	FramesControl    *metrics.Counter
	FramesRejected   *metrics.Counter
	BytesIn          *metrics.Counter
	BytesOut         *metrics.Counter
	ReaperEvictions  *metrics.Counter
	HandshakeFailure *metrics.Counter

	set *metrics.Set
}

// NewServer registers a fresh metric set so multiple relay instances (e.g.
// in tests) don't collide on the global default set.
func NewServer() *Server {
	set := metrics.NewSet()
	s := &Server{
		FramesData:       set.NewCounter("vpnrelay_frames_total{type=\"data\"}"),
		FramesKeepalive:  set.NewCounter("vpnrelay_frames_total{type=\"keepalive\"}"),
		FramesControl:    set.NewCounter("vpnrelay_frames_total{type=\"control\"}"),
		FramesRejected:   set.NewCounter("vpnrelay_frames_rejected_total"),
		BytesIn:          set.NewCounter("vpnrelay_bytes_in_total"),
		BytesOut:         set.NewCounter("vpnrelay_bytes_out_total"),
		ReaperEvictions:  set.NewCounter("vpnrelay_reaper_evictions_total"),
		HandshakeFailure: set.NewCounter("vpnrelay_handshake_failures_total"),
		set:              set,
	}
	set.NewGauge("vpnrelay_active_sessions", func() float64 {
		return float64(atomic.LoadInt64(&s.activeSessions))
	})
	return s
}

// SessionAdded/SessionRemoved adjust the active session gauge. The session
// table calls them after releasing its own lock; the count itself is
// updated atomically.
func (s *Server) SessionAdded()   { atomic.AddInt64(&s.activeSessions, 1) }
func (s *Server) SessionRemoved() { atomic.AddInt64(&s.activeSessions, -1) }

// Handler returns an http.Handler serving this server's metrics in
// Prometheus text exposition format.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.set.WritePrometheus(w)
	})
}
