package dialog

import (
	"context"
	"errors"
)

// ErrTransportClosed is returned by Transport.Receive once the
// underlying connection has been closed by the client (a clean
// disconnect, not a protocol error).
var ErrTransportClosed = errors.New("dialog: transport closed")

// Transport is the narrow duplex-channel interface the engine drives.
// internal/transport/wsapi implements it over
// github.com/coder/websocket; tests use an in-memory implementation.
//
// Receive must return ErrTransportClosed (or an error wrapping it) when
// the client disconnects, so the engine can distinguish "no message
// arrived before the deadline" (context.DeadlineExceeded) from
// "the session is over".
type Transport interface {
	Send(ctx context.Context, msg OutgoingMessage) error
	Receive(ctx context.Context) (IncomingMessage, error)

	// Close closes the underlying connection with the given close code
	// and reason, for handshake rejection (4000, 4409) and normal
	// completion.
	Close(code int, reason string) error
}

// Close codes used by the handshake (spec.md §4.2, §6).
const (
	CloseInvalidApplicationID = 4000
	CloseDuplicateActiveCall  = 4409
)
