package protocol

import "errors"

var (
	ErrPlaintextTooShort = errors.New("protocol: plaintext shorter than header")
	ErrInvalidPacketType = errors.New("protocol: invalid packet type")
	ErrInvalidControlType = errors.New("protocol: invalid control type")
	ErrInvalidConfigLength = errors.New("protocol: config payload must be 12 bytes")
	ErrInvalidRouteLength = errors.New("protocol: route payload length must be a multiple of 16")
)
