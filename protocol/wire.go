package protocol

import "encoding/binary"

// MarshalPlaintext writes source_ip(4)‖dest_ip(4)‖packet_type(1)‖
// control_type(1, zero if not Control)‖payload.
func (p VpnPacket) MarshalPlaintext() []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	copy(buf[0:4], p.SourceIP[:])
	copy(buf[4:8], p.DestIP[:])
	buf[8] = byte(p.PacketType)
	if p.PacketType == Control {
		buf[9] = byte(p.ControlType)
	}
	copy(buf[HeaderSize:], p.Payload)
	return buf
}

// UnmarshalPlaintext parses a header-and-payload buffer produced by
// MarshalPlaintext. The control-type byte is consulted (and validated)
// only when packet_type == Control; otherwise it is ignored.
func UnmarshalPlaintext(data []byte) (VpnPacket, error) {
	if len(data) < HeaderSize {
		return VpnPacket{}, ErrPlaintextTooShort
	}

	var p VpnPacket
	copy(p.SourceIP[:], data[0:4])
	copy(p.DestIP[:], data[4:8])

	pt := PacketType(data[8])
	if !pt.valid() {
		return VpnPacket{}, ErrInvalidPacketType
	}
	p.PacketType = pt

	if pt == Control {
		ct := ControlType(data[9])
		if !ct.valid() {
			return VpnPacket{}, ErrInvalidControlType
		}
		p.ControlType = ct
	}

	if len(data) > HeaderSize {
		payload := make([]byte, len(data)-HeaderSize)
		copy(payload, data[HeaderSize:])
		p.Payload = payload
	}
	return p, nil
}

// VpnConfig is the per-session/server-default operating configuration.
type VpnConfig struct {
	MTU               uint32
	KeepaliveInterval uint32 // seconds
	ReconnectAttempts uint32
}

// DefaultVpnConfig returns the server's default operating configuration:
// mtu=1500, keepalive_interval=30s, reconnect_attempts=3.
func DefaultVpnConfig() VpnConfig {
	return VpnConfig{MTU: 1500, KeepaliveInterval: 30, ReconnectAttempts: 3}
}

const ConfigPayloadSize = 12

// Marshal encodes the config as three big-endian u32 words, in field order.
func (c VpnConfig) Marshal() []byte {
	buf := make([]byte, ConfigPayloadSize)
	binary.BigEndian.PutUint32(buf[0:4], c.MTU)
	binary.BigEndian.PutUint32(buf[4:8], c.KeepaliveInterval)
	binary.BigEndian.PutUint32(buf[8:12], c.ReconnectAttempts)
	return buf
}

// UnmarshalVpnConfig parses a 12-byte config payload.
func UnmarshalVpnConfig(data []byte) (VpnConfig, error) {
	if len(data) != ConfigPayloadSize {
		return VpnConfig{}, ErrInvalidConfigLength
	}
	return VpnConfig{
		MTU:               binary.BigEndian.Uint32(data[0:4]),
		KeepaliveInterval: binary.BigEndian.Uint32(data[4:8]),
		ReconnectAttempts: binary.BigEndian.Uint32(data[8:12]),
	}, nil
}

// RouteEntry is a single routing table entry.
type RouteEntry struct {
	TargetNetwork [4]byte
	NetworkMask   [4]byte
	NextHop       [4]byte
	Metric        uint32
}

const RouteEntrySize = 16

// MarshalRoutes concatenates 16-byte entries in order.
func MarshalRoutes(routes []RouteEntry) []byte {
	buf := make([]byte, 0, len(routes)*RouteEntrySize)
	for _, r := range routes {
		var entry [RouteEntrySize]byte
		copy(entry[0:4], r.TargetNetwork[:])
		copy(entry[4:8], r.NetworkMask[:])
		copy(entry[8:12], r.NextHop[:])
		binary.BigEndian.PutUint32(entry[12:16], r.Metric)
		buf = append(buf, entry[:]...)
	}
	return buf
}

// UnmarshalRoutes parses a concatenation of 16-byte route entries. The
// payload length must be a multiple of RouteEntrySize.
func UnmarshalRoutes(data []byte) ([]RouteEntry, error) {
	if len(data)%RouteEntrySize != 0 {
		return nil, ErrInvalidRouteLength
	}
	routes := make([]RouteEntry, 0, len(data)/RouteEntrySize)
	for off := 0; off < len(data); off += RouteEntrySize {
		entry := data[off : off+RouteEntrySize]
		var r RouteEntry
		copy(r.TargetNetwork[:], entry[0:4])
		copy(r.NetworkMask[:], entry[4:8])
		copy(r.NextHop[:], entry[8:12])
		r.Metric = binary.BigEndian.Uint32(entry[12:16])
		routes = append(routes, r)
	}
	return routes, nil
}
