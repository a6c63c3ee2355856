package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MrWong99/screeningd/internal/domain"
)

// Handler processes one domain event. Handlers must not block
// indefinitely; the in-process publisher runs them synchronously on the
// publishing goroutine.
type Handler func(ctx context.Context, event domain.Event) error

// InProcess is a synchronous, in-memory publish/subscribe bus. Publish
// fans out to every handler registered for the event's kind; a handler
// panic or error is logged and does not prevent other handlers from
// running.
//
// Safe for concurrent use.
type InProcess struct {
	mu       sync.RWMutex
	handlers map[domain.EventKind][]Handler
}

// New creates an empty in-process bus.
func New() *InProcess {
	return &InProcess{handlers: make(map[domain.EventKind][]Handler)}
}

// Subscribe registers handler to run whenever an event of kind is
// published. Order of registration is preserved but handlers run
// independently of one another's outcome.
func (b *InProcess) Subscribe(kind domain.EventKind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

// Publish runs every handler registered for event.Kind(). It never
// returns an error itself (matching the in-process publisher's
// spec: "handler exceptions logged, do not abort other handlers");
// broker-backed publishers are the ones that can fail the caller.
func (b *InProcess) Publish(ctx context.Context, event domain.Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Kind()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.runHandler(ctx, event, h)
	}
	return nil
}

func (b *InProcess) runHandler(ctx context.Context, event domain.Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "event_kind", event.Kind(), "panic", r)
		}
	}()
	if err := h(ctx, event); err != nil {
		slog.Error("event handler failed", "event_kind", event.Kind(), "err", err)
	}
}
