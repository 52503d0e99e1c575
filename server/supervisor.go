package server

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"vpnrelay/metrics"
	"vpnrelay/protocol"
	"vpnrelay/relayerr"
)

// Supervisor owns the acceptor, worker and reaper background tasks, the
// shared table, and the atomic shutdown flag they all poll. It uses one
// golang.org/x/sync/errgroup.Group per task so Shutdown can join them in a
// fixed order (workers, then reaper, then acceptor) while still getting
// errgroup's first-error-wins aggregation at each stage.
type Supervisor struct {
	shutdown atomic.Bool

	listener *net.TCPListener
	table    *Table
	acceptor *Acceptor
	worker   *Worker
	reaper   *Reaper

	workerGroup   *errgroup.Group
	reaperGroup   *errgroup.Group
	acceptorGroup *errgroup.Group

	log zerolog.Logger
}

// New builds a Supervisor around an already-bound TCP listener, wiring the
// shared table, codec, default config and metrics into the acceptor,
// worker and reaper.
func New(
	listener *net.TCPListener,
	codec *protocol.Codec,
	defaultConfig protocol.VpnConfig,
	keepaliveInterval time.Duration,
	m *metrics.Server,
	log zerolog.Logger,
) *Supervisor {
	table := NewTable(m)
	return &Supervisor{
		listener: listener,
		table:    table,
		acceptor: NewAcceptor(listener, table, log.With().Str("task", "acceptor").Logger()),
		worker:   NewWorker(table, codec, defaultConfig, m, log.With().Str("task", "worker").Logger()),
		reaper:   NewReaper(table, keepaliveInterval, m, log.With().Str("task", "reaper").Logger()),
		log:      log,
	}
}

// Table exposes the shared session table for tests and the metrics/route
// query surface.
func (s *Supervisor) Table() *Table {
	return s.table
}

// Start launches the three background tasks.
func (s *Supervisor) Start() {
	s.workerGroup = &errgroup.Group{}
	s.workerGroup.Go(func() error { return s.worker.Run(&s.shutdown) })

	s.reaperGroup = &errgroup.Group{}
	s.reaperGroup.Go(func() error { return s.reaper.Run(&s.shutdown) })

	s.acceptorGroup = &errgroup.Group{}
	s.acceptorGroup.Go(func() error { return s.acceptor.Run(&s.shutdown) })
}

// Shutdown sets the flag, joins every task in a fixed order, closes the
// listener, and drops the session table. Join failures are aggregated into
// the first non-nil error but every stage still runs regardless.
func (s *Supervisor) Shutdown() error {
	s.shutdown.Store(true)

	var firstErr error
	record := func(stage string, err error) {
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", stage, err)
		}
	}

	record("worker", s.workerGroup.Wait())
	record("reaper", s.reaperGroup.Wait())
	record("acceptor", s.acceptorGroup.Wait())

	if err := s.listener.Close(); err != nil {
		record("listener close", err)
	}
	s.table.CloseAll()

	if firstErr != nil {
		return relayerr.Wrap(relayerr.Generic, fmt.Errorf("%w: %v", ErrShutdownJoinFailed, firstErr))
	}
	return nil
}
