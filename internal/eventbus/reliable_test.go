package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/outbox"
)

// flakyPublisher fails its first N calls, then succeeds.
type flakyPublisher struct {
	failCount int32
	calls     int32
	publishes []domain.Event
}

func (f *flakyPublisher) Publish(ctx context.Context, event domain.Event) error {
	atomic.AddInt32(&f.calls, 1)
	f.publishes = append(f.publishes, event)
	if atomic.LoadInt32(&f.calls) <= f.failCount {
		return errors.New("broker down")
	}
	return nil
}

func TestReliablePublisher_ReplayAfterOutage(t *testing.T) {
	t.Parallel()

	delegate := &flakyPublisher{failCount: 1}
	store := outbox.NewMemory()
	pub := NewReliablePublisher(delegate, store, 200*time.Millisecond)

	event := domain.CallFinished{
		ApplicationID: domain.NewApplicationID(),
		CallID:        domain.NewCallID(),
		At:            time.Now().UTC(),
	}

	ctx := context.Background()
	if err := pub.Publish(ctx, event); err == nil {
		t.Fatal("expected first publish to fail")
	}

	pending, err := store.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("want 1 pending row, got %d", len(pending))
	}
	if pending[0].Attempts != 1 {
		t.Fatalf("want attempts=1, got %d", pending[0].Attempts)
	}

	pub.drainPendingOnce(ctx, 100)

	pending, err = store.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending after drain: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("want 0 pending rows after successful drain, got %d", len(pending))
	}
	if delegate.calls < 2 {
		t.Fatalf("want delegate called at least twice (1 failed + 1 succeeded), got %d", delegate.calls)
	}
}

func TestReliablePublisher_DrainStopsOnFirstFailure(t *testing.T) {
	t.Parallel()

	delegate := &flakyPublisher{failCount: 100} // always fails
	store := outbox.NewMemory()
	pub := NewReliablePublisher(delegate, store, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = pub.Publish(ctx, domain.CallFinished{
			ApplicationID: domain.NewApplicationID(),
			CallID:        domain.NewCallID(),
			At:            time.Now().UTC(),
		})
	}

	callsBeforeDrain := delegate.calls
	pub.drainPendingOnce(ctx, 100)
	// Only one additional delegate call should happen: drain breaks after
	// the first failure in a pass rather than hot-looping.
	if delegate.calls != callsBeforeDrain+1 {
		t.Fatalf("want exactly 1 additional delegate call during drain, got %d", delegate.calls-callsBeforeDrain)
	}
}
