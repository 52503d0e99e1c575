package transport

import (
	"net"
	"time"
)

// noDeadline clears a deadline previously set on the connection.
var noDeadline = time.Time{}

// peekWait is how long a peek waits for bytes before reporting that none
// are available.
const peekWait = time.Millisecond

// immediateDeadline returns a deadline peekWait from now. A deadline that
// has already passed makes Read fail before it looks at the socket at all,
// so the deadline lies slightly in the future: bytes already queued are
// returned at once, and otherwise the Read returns a timeout error after at
// most peekWait, which makes a single Read behave like a would-block poll.
func immediateDeadline() time.Time {
	return time.Now().Add(peekWait)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
