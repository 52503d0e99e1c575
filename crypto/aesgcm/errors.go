package aesgcm

import "errors"

var (
	ErrInvalidKeySize       = errors.New("aesgcm: key must be 32 bytes")
	ErrCiphertextTooShort   = errors.New("aesgcm: ciphertext shorter than nonce")
	ErrAuthenticationFailed = errors.New("aesgcm: authentication failed")
)
