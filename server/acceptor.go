package server

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vpnrelay/transport"
)

// acceptPollInterval bounds how long Accept blocks before re-checking the
// shutdown flag: a short accept deadline makes a single blocking Accept call
// behave like a non-blocking poll, the same trick transport.Stream.Peekable
// uses for reads.
const acceptPollInterval = 100 * time.Millisecond

// Acceptor owns the listening endpoint and registers new sessions in the
// shared table. It holds no session state of its own.
type Acceptor struct {
	listener *net.TCPListener
	table    *Table
	log      zerolog.Logger
}

func NewAcceptor(listener *net.TCPListener, table *Table, log zerolog.Logger) *Acceptor {
	return &Acceptor{listener: listener, table: table, log: log}
}

// Run loops until shutdown is set, registering every accepted connection.
func (a *Acceptor) Run(shutdown *atomic.Bool) error {
	for !shutdown.Load() {
		if err := a.listener.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil {
			a.log.Error().Err(err).Msg("failed to set accept deadline")
			continue
		}

		conn, err := a.listener.AcceptTCP()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if shutdown.Load() {
				return nil
			}
			a.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		a.register(conn)
	}
	return nil
}

func (a *Acceptor) register(conn *net.TCPConn) {
	_ = conn.SetNoDelay(true)

	id := conn.RemoteAddr().String()
	session := &Session{
		ID:      id,
		Stream:  transport.NewStream(conn),
		TraceID: uuid.New(),
	}
	a.table.Add(session)
	a.log.Info().Str("session", id).Str("trace_id", session.TraceID.String()).Msg("session accepted")
}
