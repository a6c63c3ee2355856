package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/screeningd/internal/outbox"
)

var _ outbox.Store = (*OutboxStore)(nil)

// OutboxStore is the PostgreSQL-backed outbox.Store, used in place of
// outbox.Memory once the process is deployed with a durable database.
type OutboxStore struct {
	pool *pgxpool.Pool
}

func (s *OutboxStore) SavePending(ctx context.Context, eventType string, payload []byte) (uuid.UUID, error) {
	id := uuid.New()
	const q = `INSERT INTO outbox (id, event_type, payload) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, q, id, eventType, payload); err != nil {
		return uuid.Nil, fmt.Errorf("storage: save pending outbox row: %w", err)
	}
	return id, nil
}

func (s *OutboxStore) ListPending(ctx context.Context, limit int) ([]outbox.Record, error) {
	const q = `
		SELECT id, event_type, payload, attempts, created_at, published_at, last_error
		FROM outbox WHERE published_at IS NULL ORDER BY created_at LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list pending outbox rows: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Record, error) {
		var r outbox.Record
		err := row.Scan(&r.ID, &r.EventType, &r.Payload, &r.Attempts, &r.CreatedAt, &r.PublishedAt, &r.LastError)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("storage: scan pending outbox rows: %w", err)
	}
	if records == nil {
		records = []outbox.Record{}
	}
	return records, nil
}

func (s *OutboxStore) MarkPublished(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE outbox SET published_at = now(), last_error = NULL WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("storage: mark outbox row published: %w", err)
	}
	return nil
}

func (s *OutboxStore) MarkFailedAttempt(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, id, outbox.TruncateError(errMsg)); err != nil {
		return fmt.Errorf("storage: mark outbox attempt failed: %w", err)
	}
	return nil
}
