package clients

import (
	"time"

	"github.com/go-routeros/routeros/v3"
)

// Session is an open, authenticated channel to one RouterOS device.
// Sessions are owned by the connection manager; callers must not close
// them directly.
type Session interface {
	// RunArgs executes a RouterOS API sentence and returns the reply.
	RunArgs(args []string) (*routeros.Reply, error)

	// Close closes the underlying transport.
	Close() error
}

// Dialer opens a new authenticated session. The connection manager uses
// it to (re)build sessions; tests substitute a deterministic fake so no
// real sockets are opened.
type Dialer func(addr, username, password string, timeout time.Duration) (Session, error)
