package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store backed by a mutex-guarded map, suitable
// for tests and for single-process deployments without Postgres.
type Memory struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Record
}

// NewMemory creates an empty in-memory outbox store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[uuid.UUID]*Record)}
}

func (m *Memory) SavePending(ctx context.Context, eventType string, payload []byte) (uuid.UUID, error) {
	id := uuid.New()
	body := make([]byte, len(payload))
	copy(body, payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id] = &Record{
		ID:        id,
		EventType: eventType,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

func (m *Memory) ListPending(ctx context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := make([]Record, 0, len(m.rows))
	for _, r := range m.rows {
		if r.Pending() {
			pending = append(pending, *r)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (m *Memory) MarkPublished(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	row.PublishedAt = &now
	row.LastError = nil
	return nil
}

func (m *Memory) MarkFailedAttempt(ctx context.Context, id uuid.UUID, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil
	}
	row.Attempts++
	truncated := TruncateError(errMsg)
	row.LastError = &truncated
	return nil
}
