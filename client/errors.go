package client

import "errors"

var (
	ErrNotConnected             = errors.New("client: not connected")
	ErrAlreadyHandshaking       = errors.New("client: handshake already in progress or completed")
	ErrInvalidHandshakeResponse = errors.New("client: invalid handshake response")
)
