package server

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vpnrelay/metrics"
)

// StaleThreshold is how long a session may go without a successful read or
// keepalive before the reaper removes it.
const StaleThreshold = 90 * time.Second

// Reaper periodically removes stale sessions on a ticker, polling an atomic
// shutdown flag so it stops in step with the rest of the supervisor.
type Reaper struct {
	table    *Table
	interval time.Duration
	metrics  *metrics.Server
	log      zerolog.Logger
}

func NewReaper(table *Table, interval time.Duration, m *metrics.Server, log zerolog.Logger) *Reaper {
	return &Reaper{table: table, interval: interval, metrics: m, log: log}
}

// Run ticks at r.interval until shutdown is set. Removal is best-effort and
// has no error path.
func (r *Reaper) Run(shutdown *atomic.Bool) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for !shutdown.Load() {
		<-ticker.C
		if shutdown.Load() {
			return nil
		}
		for _, id := range r.table.StaleIds(StaleThreshold) {
			r.table.Delete(id)
			r.metrics.ReaperEvictions.Inc()
			r.log.Info().Str("session", id).Msg("session reaped (stale)")
		}
	}
	return nil
}
