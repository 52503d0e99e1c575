package protocol

import (
	"bytes"
	"errors"
	"testing"

	"vpnrelay/crypto/aesgcm"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	key := bytes.Repeat([]byte{0x01}, aesgcm.KeySize)
	unit, err := aesgcm.New(key)
	if err != nil {
		t.Fatalf("aesgcm.New: %v", err)
	}
	return NewCodec(unit)
}

func TestCodec_PackUnpack_RoundTrip(t *testing.T) {
	c := testCodec(t)

	p := VpnPacket{
		SourceIP:   [4]byte{192, 168, 1, 1},
		DestIP:     [4]byte{192, 168, 1, 2},
		PacketType: Data,
		Payload:    []byte("Hello, VPN Server!"),
	}

	frame, err := c.Pack(p)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	got, err := c.Unpack(frame)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.SourceIP != p.SourceIP || got.DestIP != p.DestIP || got.PacketType != p.PacketType {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Payload, p.Payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestCodec_Unpack_ShortPlaintext(t *testing.T) {
	c := testCodec(t)

	key := bytes.Repeat([]byte{0x01}, aesgcm.KeySize)
	unit, _ := aesgcm.New(key)
	frame, err := unit.Encrypt([]byte("short"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := c.Unpack(frame); !errors.Is(err, ErrPlaintextTooShort) {
		t.Fatalf("expected ErrPlaintextTooShort, got %v", err)
	}
}

func TestCodec_Unpack_TamperedFrame(t *testing.T) {
	c := testCodec(t)

	p := VpnPacket{PacketType: Keepalive}
	frame, _ := c.Pack(p)
	frame[len(frame)-1] ^= 0xFF

	if _, err := c.Unpack(frame); !errors.Is(err, aesgcm.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}
