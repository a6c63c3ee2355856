// Package mock provides an in-memory dialog.Transport test double, used
// by internal/dialog's own tests and by anything else driving the
// engine without a real WebSocket connection.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/screeningd/internal/dialog"
)

// Transport is a channel-backed dialog.Transport. Tests push client
// frames via Inbox and read server frames off Outbox.
type Transport struct {
	Inbox  chan dialog.IncomingMessage
	Outbox chan dialog.OutgoingMessage

	mu          sync.Mutex
	closed      bool
	CloseCode   int
	CloseReason string
}

// New constructs a Transport with a generously buffered Outbox so the
// engine's sends never block on a test that isn't actively draining it.
func New() *Transport {
	return &Transport{
		Inbox:  make(chan dialog.IncomingMessage, 64),
		Outbox: make(chan dialog.OutgoingMessage, 256),
	}
}

func (t *Transport) Send(ctx context.Context, msg dialog.OutgoingMessage) error {
	select {
	case t.Outbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transport) Receive(ctx context.Context) (dialog.IncomingMessage, error) {
	select {
	case msg, ok := <-t.Inbox:
		if !ok {
			return dialog.IncomingMessage{}, dialog.ErrTransportClosed
		}
		return msg, nil
	case <-ctx.Done():
		return dialog.IncomingMessage{}, ctx.Err()
	}
}

func (t *Transport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.CloseCode = code
	t.CloseReason = reason
	return nil
}

// SendText pushes a client text frame into Inbox, for tests that drive
// the engine like a candidate would.
func (t *Transport) SendText(text string) {
	t.Inbox <- dialog.IncomingMessage{Type: dialog.IncomingText, Text: text}
}

// Disconnect closes Inbox, causing the next Receive to return
// dialog.ErrTransportClosed, simulating a client-initiated disconnect.
func (t *Transport) Disconnect() {
	close(t.Inbox)
}
