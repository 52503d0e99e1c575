// Package transport implements the length-prefixed stream framing used on
// top of any reliable byte stream: a 4-byte big-endian length followed by
// that many bytes of ciphertext.
package transport

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"

	"vpnrelay/relayerr"
)

// MaxFrameSize is the maximum ciphertext length accepted on the wire.
const MaxFrameSize = 65535

const lengthPrefixSize = 4

// Stream is a length-prefixed frame reader/writer over a net.Conn. Writes
// go straight to the connection so the peer observes the full frame
// promptly; reads are buffered only for the peek used by the non-blocking
// read policy.
type Stream struct {
	conn net.Conn
	r    *bufio.Reader
}

func NewStream(conn net.Conn) *Stream {
	return &Stream{conn: conn, r: bufio.NewReaderSize(conn, MaxFrameSize+lengthPrefixSize)}
}

// WriteFrame writes len(body) as a 4-byte big-endian prefix followed by
// body. The caller is responsible for keeping len(body) <= MaxFrameSize.
func (s *Stream) WriteFrame(body []byte) error {
	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))

	if _, err := s.conn.Write(prefix[:]); err != nil {
		return relayerr.Wrap(relayerr.Io, err)
	}
	if _, err := s.conn.Write(body); err != nil {
		return relayerr.Wrap(relayerr.Io, err)
	}
	return nil
}

// ReadFrame blocks until a full frame (prefix + body) has been read, or
// returns an error. A decoded length greater than MaxFrameSize is a
// Protocol error; a short read on either the prefix or the body is an Io
// error.
func (s *Stream) ReadFrame() ([]byte, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(s.r, prefix[:]); err != nil {
		return nil, relayerr.Wrap(relayerr.Io, err)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > MaxFrameSize {
		return nil, relayerr.Wrap(relayerr.Protocol, ErrFrameTooLarge)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(s.r, body); err != nil {
		return nil, relayerr.Wrap(relayerr.Io, err)
	}
	return body, nil
}

// Peekable reports whether at least n bytes are currently buffered or
// arrive within a very short wait. It sets a read deadline just ahead of
// now (see immediateDeadline) so that an underlying Read that would
// otherwise block instead returns a timeout error, which Peekable treats as
// "not yet available".
func (s *Stream) Peekable(n int) (bool, error) {
	if s.r.Buffered() >= n {
		return true, nil
	}

	if err := s.conn.SetReadDeadline(immediateDeadline()); err != nil {
		return false, relayerr.Wrap(relayerr.Io, err)
	}
	defer func() { _ = s.conn.SetReadDeadline(noDeadline) }()

	_, err := s.r.Peek(n)
	if err == nil {
		return true, nil
	}
	if isTimeout(err) {
		return false, nil
	}
	return false, relayerr.Wrap(relayerr.Io, err)
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}

func (s *Stream) Conn() net.Conn {
	return s.conn
}
