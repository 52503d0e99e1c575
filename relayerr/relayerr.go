// Package relayerr defines the error kinds surfaced by the relay core and
// a small typed wrapper so callers can switch on Kind() while still
// unwrapping to the underlying cause with errors.Is/As.
//
// Individual packages keep their own sentinel errors (see e.g.
// crypto/aesgcm/errors.go, protocol/errors.go) for fine-grained
// errors.Is checks; relayerr.Wrap is used at package boundaries where the
// server/client dispatch logic only needs to know the coarse category.
package relayerr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	Io Kind = iota
	Encryption
	Protocol
	Config
	KeyExchange // reserved, unused by the current handshake
	ClientNotFound
	Generic
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "Io"
	case Encryption:
		return "Encryption"
	case Protocol:
		return "Protocol"
	case Config:
		return "Config"
	case KeyExchange:
		return "KeyExchange"
	case ClientNotFound:
		return "ClientNotFound"
	case Generic:
		return "GenericError"
	default:
		return "Unknown"
	}
}

// Error pairs a Kind with an underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap annotates err with kind. Wrap(kind, nil) returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the Kind attached to err via Wrap, or Generic if err was
// never wrapped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Generic
}
