package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/eventbus/envelope"
	"github.com/MrWong99/screeningd/internal/outbox"
)

const (
	minFlushInterval  = 200 * time.Millisecond
	drainPassLimit    = 100
)

// ReliablePublisher wraps a delegate domain.EventPublisher with an
// outbox: every event is durably recorded as pending before the delegate
// is attempted, so a broker outage never silently drops an event.
// Mirrors original_source's reliable_event_publisher.py.
//
// Safe for concurrent use.
type ReliablePublisher struct {
	delegate domain.EventPublisher
	store    outbox.Store

	flushInterval time.Duration
	drainMu       sync.Mutex // TryLock guard, never held across I/O by more than one goroutine

	relayCancel context.CancelFunc
	relayDone   chan struct{}
}

// NewReliablePublisher wraps delegate with outbox-backed durability.
// flushInterval is clamped to a minimum of 200ms, per spec.
func NewReliablePublisher(delegate domain.EventPublisher, store outbox.Store, flushInterval time.Duration) *ReliablePublisher {
	if flushInterval < minFlushInterval {
		flushInterval = minFlushInterval
	}
	return &ReliablePublisher{delegate: delegate, store: store, flushInterval: flushInterval}
}

// Publish persists event as a pending outbox row, then attempts the
// delegate publish. On delegate failure the row is left pending (attempt
// count incremented, last error recorded) and the error is returned to
// the caller. On success the row is marked published and up to 100
// pending rows are opportunistically drained.
func (p *ReliablePublisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := envelope.Encode(event)
	if err != nil {
		return err
	}
	id, err := p.store.SavePending(ctx, string(event.Kind()), body)
	if err != nil {
		return err
	}

	if err := p.delegate.Publish(ctx, event); err != nil {
		_ = p.store.MarkFailedAttempt(ctx, id, err.Error())
		return err
	}

	_ = p.store.MarkPublished(ctx, id)
	p.drainPendingOnce(ctx, drainPassLimit)
	return nil
}

// StartRelay launches the background relay goroutine, which drains
// pending rows once immediately and then again every flushInterval.
// Calling StartRelay more than
// once is a no-op until Stop is called.
func (p *ReliablePublisher) StartRelay(ctx context.Context) {
	if p.relayCancel != nil {
		return
	}
	relayCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.relayCancel = cancel
	p.relayDone = done

	go func() {
		defer close(done)
		p.drainPendingOnce(relayCtx, drainPassLimit)
		ticker := time.NewTicker(p.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-relayCtx.Done():
				return
			case <-ticker.C:
				p.drainPendingOnce(relayCtx, drainPassLimit)
			}
		}
	}()
	slog.Info("outbox relay started", "flush_interval", p.flushInterval)
}

// Stop cancels the relay goroutine and waits for it to exit.
func (p *ReliablePublisher) Stop() {
	if p.relayCancel == nil {
		return
	}
	p.relayCancel()
	<-p.relayDone
	p.relayCancel = nil
	p.relayDone = nil
}

// drainPendingOnce drains up to limit pending rows through the delegate.
// A non-blocking lock guards against concurrent drains (contenders skip
// rather than block); on any delegate failure the current pass stops
// immediately rather than hot-looping against a down broker.
func (p *ReliablePublisher) drainPendingOnce(ctx context.Context, limit int) {
	if !p.drainMu.TryLock() {
		return
	}
	defer p.drainMu.Unlock()

	pending, err := p.store.ListPending(ctx, limit)
	if err != nil {
		slog.Warn("outbox drain: list pending failed", "err", err)
		return
	}

	for _, row := range pending {
		event, err := envelope.Decode(row.Payload)
		if err != nil {
			slog.Warn("outbox drain: undecodable row, marking failed attempt", "id", row.ID, "event_type", row.EventType, "err", err)
			_ = p.store.MarkFailedAttempt(ctx, row.ID, err.Error())
			continue
		}
		if err := p.delegate.Publish(ctx, event); err != nil {
			_ = p.store.MarkFailedAttempt(ctx, row.ID, err.Error())
			slog.Warn("outbox replay failed", "id", row.ID, "event_type", row.EventType, "err", err)
			break
		}
		_ = p.store.MarkPublished(ctx, row.ID)
	}
}
