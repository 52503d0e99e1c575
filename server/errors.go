package server

import "errors"

// ErrSessionNotFound is wrapped with relayerr.ClientNotFound at call sites.
var ErrSessionNotFound = errors.New("server: session not found")

// ErrShutdownJoinFailed is returned by Supervisor.Shutdown when one or more
// background tasks failed to join cleanly.
var ErrShutdownJoinFailed = errors.New("server: one or more tasks failed to shut down cleanly")
