// Package wsapi adapts internal/dialog's transport-agnostic Engine to a
// real WebSocket connection via github.com/coder/websocket, the same
// library the teacher uses for its OpenAI Realtime duplex channel
// (pkg/provider/s2s/openai).
package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/MrWong99/screeningd/internal/dialog"
)

// Transport implements dialog.Transport over one accepted WebSocket
// connection. Not safe for concurrent Send calls from multiple
// goroutines; the engine drives one session from a single goroutine.
type Transport struct {
	conn *websocket.Conn
}

var _ dialog.Transport = (*Transport)(nil)

// Accept upgrades r to a WebSocket connection using the configured
// allowed origins for the handshake's CORS check, and wraps it as a
// dialog.Transport.
func Accept(w http.ResponseWriter, r *http.Request, allowedOrigins []string) (*Transport, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: allowedOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("wsapi: accept: %w", err)
	}
	return &Transport{conn: conn}, nil
}

// Send marshals msg as JSON and writes it as one text WebSocket message.
func (t *Transport) Send(ctx context.Context, msg dialog.OutgoingMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("wsapi: marshal outgoing message: %w", err)
	}
	if err := t.conn.Write(ctx, websocket.MessageText, data); err != nil {
		if isClosedErr(err) {
			return dialog.ErrTransportClosed
		}
		return fmt.Errorf("wsapi: write: %w", err)
	}
	return nil
}

// Receive reads one text WebSocket message and decodes it as an
// IncomingMessage.
func (t *Transport) Receive(ctx context.Context) (dialog.IncomingMessage, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return dialog.IncomingMessage{}, ctx.Err()
		}
		if isClosedErr(err) {
			return dialog.IncomingMessage{}, dialog.ErrTransportClosed
		}
		return dialog.IncomingMessage{}, fmt.Errorf("wsapi: read: %w", err)
	}

	var msg dialog.IncomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return dialog.IncomingMessage{}, fmt.Errorf("wsapi: decode incoming message: %w", err)
	}
	return msg, nil
}

// Close closes the underlying connection with code and reason, per the
// close codes dialog.Engine uses (1000 normal, 4000 invalid id, 4409
// duplicate call).
func (t *Transport) Close(code int, reason string) error {
	err := t.conn.Close(websocket.StatusCode(code), reason)
	if err != nil && isClosedErr(err) {
		return nil
	}
	return err
}

func isClosedErr(err error) bool {
	var closeErr websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	return errors.Is(err, context.Canceled)
}
