// Package outbox implements the durable pending/published bookkeeping
// that backs at-least-once event publishing: an OutboxRecord per
// attempted publish, with attempt counts and a truncated last error.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// maxLastErrorLen bounds OutboxRecord.LastError.
const maxLastErrorLen = 1000

// Record is one outbox row. Pending iff PublishedAt is nil.
type Record struct {
	ID          uuid.UUID
	EventType   string
	Payload     []byte // JSON envelope bytes
	Attempts    int
	CreatedAt   time.Time
	PublishedAt *time.Time
	LastError   *string
}

// Pending reports whether this record is still awaiting a successful
// publish.
func (r Record) Pending() bool { return r.PublishedAt == nil }

// Store is the persistence port for outbox rows. Implementations (see
// Memory and the Postgres adapter in internal/storage) must tolerate
// concurrent writers: accesses are point operations by id.
type Store interface {
	SavePending(ctx context.Context, eventType string, payload []byte) (uuid.UUID, error)
	ListPending(ctx context.Context, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailedAttempt(ctx context.Context, id uuid.UUID, errMsg string) error
}

// TruncateError caps msg at maxLastErrorLen characters so a pathological
// error message cannot grow an outbox row unboundedly.
func TruncateError(msg string) string {
	if len(msg) <= maxLastErrorLen {
		return msg
	}
	return msg[:maxLastErrorLen]
}
