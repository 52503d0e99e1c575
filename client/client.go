// Package client implements the relay client session: handshake, the
// synchronous request/response call, and a background heartbeat task that
// shares the connection's write path with that call.
package client

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vpnrelay/protocol"
	"vpnrelay/relayerr"
	"vpnrelay/transport"
)

// State is the client session's lifecycle stage.
type State uint8

const (
	New State = iota
	Handshaking
	Connected
	Disconnecting
	Closed
)

func (s State) String() string {
	switch s {
	case New:
		return "New"
	case Handshaking:
		return "Handshaking"
	case Connected:
		return "Connected"
	case Disconnecting:
		return "Disconnecting"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// streamTimeout is the read/write deadline applied to every client stream
// operation, handshake and heartbeat alike.
const streamTimeout = 45 * time.Second

// Client is a single-session connection to a relay server. Send and the
// heartbeat task share the stream's write side; writeMu is the single
// point of serialization between them, a single-writer lock shared
// between the data path and any background sender.
type Client struct {
	stream *transport.Stream
	codec  *protocol.Codec
	log    zerolog.Logger

	writeMu sync.Mutex

	mu    sync.Mutex
	state State
	cfg   protocol.VpnConfig

	shutdown atomic.Bool
	hbStop   chan struct{}
	hbDone   chan struct{}
}

// Dial opens a TCP connection to addr, disables Nagle, and wraps it in a
// Client in state New. It does not perform the handshake; call Handshake
// to do that.
func Dial(addr string, codec *protocol.Codec, log zerolog.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Io, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Client{
		stream: transport.NewStream(conn),
		codec:  codec,
		log:    log,
		state:  New,
	}, nil
}

// State reports the client's current lifecycle stage.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Config returns the VpnConfig learned during the handshake. Only
// meaningful once State() is Connected or later.
func (c *Client) Config() protocol.VpnConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Handshake sends ConfigRequest, reads exactly one reply frame, and
// requires it to be a ConfigResponse carrying a 12-byte VpnConfig payload.
// On success it transitions New -> Connected and starts the heartbeat
// task at the interval the server handed back, or at heartbeatInterval[0]
// when one is given. On failure the client remains in New.
func (c *Client) Handshake(heartbeatInterval ...time.Duration) error {
	c.mu.Lock()
	if c.state != New {
		c.mu.Unlock()
		return relayerr.Wrap(relayerr.Protocol, ErrAlreadyHandshaking)
	}
	c.state = Handshaking
	c.mu.Unlock()

	reply, err := c.roundTrip(protocol.VpnPacket{
		PacketType:  protocol.Control,
		ControlType: protocol.ConfigRequest,
	})
	if err != nil {
		c.setState(New)
		return err
	}
	if reply.PacketType != protocol.Control || reply.ControlType != protocol.ConfigResponse {
		c.setState(New)
		return relayerr.Wrap(relayerr.Protocol, ErrInvalidHandshakeResponse)
	}
	cfg, err := protocol.UnmarshalVpnConfig(reply.Payload)
	if err != nil {
		c.setState(New)
		return relayerr.Wrap(relayerr.Protocol, ErrInvalidHandshakeResponse)
	}

	c.mu.Lock()
	c.cfg = cfg
	c.state = Connected
	c.mu.Unlock()

	interval := time.Duration(cfg.KeepaliveInterval) * time.Second
	if len(heartbeatInterval) > 0 {
		interval = heartbeatInterval[0]
	}
	c.hbStop = make(chan struct{})
	c.hbDone = make(chan struct{})
	go c.runHeartbeat(interval)

	return nil
}

// Send requires the client be Connected. It encrypts and writes pkt,
// then synchronously reads and decrypts exactly one reply frame. Callers
// must not issue concurrent Send calls on the same client.
func (c *Client) Send(pkt protocol.VpnPacket) (protocol.VpnPacket, error) {
	if c.State() != Connected {
		return protocol.VpnPacket{}, relayerr.Wrap(relayerr.Protocol, ErrNotConnected)
	}
	return c.roundTrip(pkt)
}

func (c *Client) roundTrip(pkt protocol.VpnPacket) (protocol.VpnPacket, error) {
	frame, err := c.codec.Pack(pkt)
	if err != nil {
		return protocol.VpnPacket{}, err
	}

	c.writeMu.Lock()
	werr := c.withDeadline(func() error { return c.stream.WriteFrame(frame) })
	c.writeMu.Unlock()
	if werr != nil {
		return protocol.VpnPacket{}, werr
	}

	var body []byte
	rerr := c.withDeadline(func() error {
		var err error
		body, err = c.stream.ReadFrame()
		return err
	})
	if rerr != nil {
		return protocol.VpnPacket{}, rerr
	}
	return c.codec.Unpack(body)
}

func (c *Client) withDeadline(f func() error) error {
	conn := c.stream.Conn()
	deadline := time.Now().Add(streamTimeout)
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)
	return f()
}

// runHeartbeat sends a Keepalive frame every interval until hbStop is
// closed or a write fails. It takes writeMu for each send so it never
// interleaves bytes with an in-flight Send call. Selecting on hbStop
// alongside the ticker (rather than only polling a flag once per tick)
// keeps Disconnect from blocking for up to a full interval.
func (c *Client) runHeartbeat(interval time.Duration) {
	defer close(c.hbDone)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.hbStop:
			return
		case <-ticker.C:
		}
		if c.shutdown.Load() || c.State() != Connected {
			return
		}

		frame, err := c.codec.Pack(protocol.VpnPacket{PacketType: protocol.Keepalive})
		if err != nil {
			c.log.Warn().Err(err).Msg("heartbeat encode failed")
			return
		}

		c.writeMu.Lock()
		err = c.withDeadline(func() error { return c.stream.WriteFrame(frame) })
		c.writeMu.Unlock()
		if err != nil {
			c.log.Warn().Err(err).Msg("heartbeat write failed, stopping")
			return
		}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Disconnect sends Control/Disconnect, stops the heartbeat task, and
// closes the stream. Idempotent: calling it more than once, or on a
// client that never reached Connected, is a no-op beyond the first call.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.state == Closed || c.state == Disconnecting {
		c.mu.Unlock()
		return nil
	}
	wasConnected := c.state == Connected
	c.state = Disconnecting
	c.mu.Unlock()

	c.shutdown.Store(true)
	if c.hbStop != nil {
		close(c.hbStop)
	}

	var sendErr error
	if wasConnected {
		_, sendErr = c.roundTrip(protocol.VpnPacket{PacketType: protocol.Control, ControlType: protocol.Disconnect})
	}

	if c.hbDone != nil {
		<-c.hbDone
	}

	closeErr := c.stream.Close()

	c.setState(Closed)

	if sendErr != nil {
		return sendErr
	}
	return closeErr
}
