package transport

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"vpnrelay/relayerr"
)

func tcpPipe(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			acceptCh <- conn
		}
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	server = <-acceptCh
	return client, server
}

func TestStream_WriteReadFrame_RoundTrip(t *testing.T) {
	client, server := tcpPipe(t)
	defer func() { _ = client.Close(); _ = server.Close() }()

	writer := NewStream(client)
	reader := NewStream(server)

	payload := []byte("Hello, VPN Server!")
	if err := writer.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q want %q", got, payload)
	}
}

func TestStream_ReadFrame_OversizeLengthIsProtocolError(t *testing.T) {
	client, server := tcpPipe(t)
	defer func() { _ = client.Close(); _ = server.Close() }()

	var prefix [4]byte
	prefix[0], prefix[1], prefix[2], prefix[3] = 0xFF, 0xFF, 0xFF, 0xFF
	if _, err := client.Write(prefix[:]); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reader := NewStream(server)
	_, err := reader.ReadFrame()
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if relayerr.KindOf(err) != relayerr.Protocol {
		t.Fatalf("expected Protocol kind, got %v", relayerr.KindOf(err))
	}
}

func TestStream_ReadFrame_ShortReadIsIoError(t *testing.T) {
	client, server := tcpPipe(t)
	defer func() { _ = server.Close() }()

	var prefix [4]byte
	prefix[3] = 10 // claim 10 bytes, then close before sending them
	_, _ = client.Write(prefix[:])
	_ = client.Close()

	reader := NewStream(server)
	_, err := reader.ReadFrame()
	if err == nil {
		t.Fatalf("expected error on short body")
	}
	if relayerr.KindOf(err) != relayerr.Io {
		t.Fatalf("expected Io kind, got %v", relayerr.KindOf(err))
	}
}

func TestStream_Peekable_FalseWhenNothingAvailable(t *testing.T) {
	client, server := tcpPipe(t)
	defer func() { _ = client.Close(); _ = server.Close() }()

	reader := NewStream(server)
	ok, err := reader.Peekable(4)
	if err != nil {
		t.Fatalf("Peekable: %v", err)
	}
	if ok {
		t.Fatalf("expected Peekable to report false with nothing written")
	}
}

func TestStream_Peekable_TrueOnceBytesArrive(t *testing.T) {
	client, server := tcpPipe(t)
	defer func() { _ = client.Close(); _ = server.Close() }()

	if _, err := client.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reader := NewStream(server)
	deadline := time.Now().Add(time.Second)
	for {
		ok, err := reader.Peekable(4)
		if err != nil {
			t.Fatalf("Peekable: %v", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for Peekable to report true")
		}
	}
}

func TestStream_ReadFrame_ClearsDeadlineAfterPeek(t *testing.T) {
	client, server := tcpPipe(t)
	defer func() { _ = client.Close(); _ = server.Close() }()

	reader := NewStream(server)
	_, _ = reader.Peekable(4) // sets and clears a deadline internally

	done := make(chan error, 1)
	go func() {
		_, err := reader.ReadFrame()
		done <- err
	}()

	payload := []byte("after-peek")
	writer := NewStream(client)
	if err := writer.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ReadFrame blocked past expectation; deadline not cleared")
	}
}
