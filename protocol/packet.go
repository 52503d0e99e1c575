// Package protocol implements the VPN relay's plaintext packet layout and
// the AEAD frame codec built on top of it.
package protocol

import "net"

// PacketType is the outermost discriminator of a VpnPacket.
type PacketType uint8

const (
	Data      PacketType = 0
	Keepalive PacketType = 1
	Control   PacketType = 2
)

func (t PacketType) valid() bool {
	switch t {
	case Data, Keepalive, Control:
		return true
	default:
		return false
	}
}

// ControlType further discriminates a Control packet. It is only
// meaningful when PacketType == Control.
type ControlType uint8

const (
	ConfigRequest  ControlType = 0
	ConfigResponse ControlType = 1
	RouteUpdate    ControlType = 2
	Disconnect     ControlType = 3
)

func (t ControlType) valid() bool {
	switch t {
	case ConfigRequest, ConfigResponse, RouteUpdate, Disconnect:
		return true
	default:
		return false
	}
}

// HeaderSize is the fixed plaintext header length: source_ip(4) + dest_ip(4)
// + packet_type(1) + control_type(1).
const HeaderSize = 10

// VpnPacket is the decrypted, parsed packet structure.
type VpnPacket struct {
	SourceIP    [4]byte
	DestIP      [4]byte
	PacketType  PacketType
	ControlType ControlType // ignored unless PacketType == Control
	Payload     []byte
}

// NewDataPacket builds a Data packet from net.IP values (must be 4-byte
// form; IPv4-mapped IPv6 is accepted and truncated via To4()).
func NewDataPacket(src, dst net.IP, payload []byte) VpnPacket {
	p := VpnPacket{PacketType: Data, Payload: payload}
	copy(p.SourceIP[:], src.To4())
	copy(p.DestIP[:], dst.To4())
	return p
}
