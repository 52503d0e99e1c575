package server

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vpnrelay/metrics"
	"vpnrelay/protocol"
	"vpnrelay/relayerr"
)

// workerIdleSleep is the pause between full passes over the session table.
const workerIdleSleep = 10 * time.Millisecond

// ackByte is the single-byte RouteUpdate acknowledgement payload.
var ackByte = []byte{0x01}

// Worker polls every session once per pass, reads at most one frame per
// ready session, and dispatches by packet type.
type Worker struct {
	table         *Table
	codec         *protocol.Codec
	defaultConfig protocol.VpnConfig
	metrics       *metrics.Server
	log           zerolog.Logger
}

func NewWorker(table *Table, codec *protocol.Codec, defaultConfig protocol.VpnConfig, m *metrics.Server, log zerolog.Logger) *Worker {
	return &Worker{table: table, codec: codec, defaultConfig: defaultConfig, metrics: m, log: log}
}

// Run loops until shutdown is set.
func (w *Worker) Run(shutdown *atomic.Bool) error {
	for !shutdown.Load() {
		for _, id := range w.table.Ids() {
			w.processOnce(id)
		}
		time.Sleep(workerIdleSleep)
	}
	return nil
}

func (w *Worker) processOnce(id string) {
	session, ok := w.table.Get(id)
	if !ok {
		return // removed between the snapshot and this iteration
	}

	ready, err := session.Stream.Peekable(4)
	if err != nil {
		w.log.Warn().Str("session", id).Err(err).Msg("peek failed")
		return // Io: logged, session continues, reaped on timeout
	}
	if !ready {
		return // no frame this tick
	}

	body, err := session.Stream.ReadFrame()
	if err != nil {
		if relayerr.KindOf(err) == relayerr.Io {
			w.log.Warn().Str("session", id).Err(err).Msg("read failed")
			return
		}
		w.fatal(id, "frame too large", err)
		return
	}
	w.metrics.BytesIn.Add(len(body))

	packet, err := w.codec.Unpack(body)
	if err != nil {
		w.metrics.HandshakeFailure.Inc()
		w.fatal(id, "decode failed", err)
		return
	}

	w.table.Touch(id)
	w.dispatch(id, session, packet)
}

// fatal removes a session after a Protocol/Encryption-kind failure.
func (w *Worker) fatal(id, reason string, err error) {
	w.metrics.FramesRejected.Inc()
	w.log.Warn().Str("session", id).Str("reason", reason).Err(err).Msg("session failed, removing")
	w.table.Delete(id)
}

func (w *Worker) dispatch(id string, session *Session, packet protocol.VpnPacket) {
	switch packet.PacketType {
	case protocol.Data:
		w.metrics.FramesData.Inc()
		reply := protocol.VpnPacket{
			SourceIP:   packet.DestIP,
			DestIP:     packet.SourceIP,
			PacketType: protocol.Data,
			Payload:    packet.Payload,
		}
		w.reply(id, session, reply)

	case protocol.Keepalive:
		w.metrics.FramesKeepalive.Inc()
		// last_seen already refreshed by Touch above; no reply.

	case protocol.Control:
		w.metrics.FramesControl.Inc()
		w.dispatchControl(id, session, packet)
	}
}

func (w *Worker) dispatchControl(id string, session *Session, packet protocol.VpnPacket) {
	switch packet.ControlType {
	case protocol.ConfigRequest:
		cfg := w.table.GetOrInsertConfig(id, w.defaultConfig)
		reply := protocol.VpnPacket{
			PacketType:  protocol.Control,
			ControlType: protocol.ConfigResponse,
			Payload:     cfg.Marshal(),
		}
		w.reply(id, session, reply)

	case protocol.RouteUpdate:
		routes, err := protocol.UnmarshalRoutes(packet.Payload)
		if err != nil {
			w.fatal(id, "bad route payload", err)
			return
		}
		w.table.SetRoutes(id, routes)
		reply := protocol.VpnPacket{
			PacketType:  protocol.Control,
			ControlType: protocol.RouteUpdate,
			Payload:     ackByte,
		}
		w.reply(id, session, reply)

	case protocol.Disconnect:
		reply := protocol.VpnPacket{PacketType: protocol.Control, ControlType: protocol.Disconnect}
		w.reply(id, session, reply)
		w.log.Info().Str("session", id).Msg("session disconnected")
		w.table.Delete(id)
	}
}

func (w *Worker) reply(id string, session *Session, packet protocol.VpnPacket) {
	frame, err := w.codec.Pack(packet)
	if err != nil {
		w.fatal(id, "encode failed", err)
		return
	}
	if err := session.Stream.WriteFrame(frame); err != nil {
		w.log.Warn().Str("session", id).Err(err).Msg("write failed")
		return
	}
	w.metrics.BytesOut.Add(len(frame))
}
