// Package storage is the PostgreSQL persistence layer for the
// applications/calls/analyses graph and the at-least-once publish
// outbox. A single connection pool backs all four repositories.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddl = `
CREATE TABLE IF NOT EXISTS candidates (
    id        TEXT PRIMARY KEY,
    username  TEXT NOT NULL,
    full_name TEXT NOT NULL DEFAULT '',
    skills    JSONB NOT NULL DEFAULT '[]',
    jobs      JSONB NOT NULL DEFAULT '[]'
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_candidates_username ON candidates (lower(username));

CREATE TABLE IF NOT EXISTS job_offers (
    id               TEXT PRIMARY KEY,
    external_id      TEXT NOT NULL,
    objective        TEXT NOT NULL DEFAULT '',
    strengths        JSONB NOT NULL DEFAULT '[]',
    responsibilities JSONB NOT NULL DEFAULT '[]'
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_job_offers_external_id ON job_offers (external_id);

CREATE TABLE IF NOT EXISTS applications (
    id            TEXT PRIMARY KEY,
    candidate_id  TEXT NOT NULL REFERENCES candidates (id),
    job_offer_id  TEXT NOT NULL REFERENCES job_offers (id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_candidate_job
    ON applications (candidate_id, job_offer_id);

CREATE TABLE IF NOT EXISTS calls (
    id             TEXT PRIMARY KEY,
    application_id TEXT NOT NULL REFERENCES applications (id),
    status         TEXT NOT NULL,
    started_at     TIMESTAMPTZ NOT NULL,
    ended_at       TIMESTAMPTZ,
    transcript     JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_calls_application_id ON calls (application_id);

CREATE TABLE IF NOT EXISTS analyses (
    application_id TEXT PRIMARY KEY REFERENCES applications (id),
    id             TEXT NOT NULL,
    fit_score      INTEGER NOT NULL,
    skills         JSONB NOT NULL DEFAULT '[]',
    completed_at   TIMESTAMPTZ NOT NULL,
    status         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS outbox (
    id           UUID PRIMARY KEY,
    event_type   TEXT NOT NULL,
    payload      BYTEA NOT NULL,
    attempts     INTEGER NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    published_at TIMESTAMPTZ,
    last_error   TEXT
);

CREATE INDEX IF NOT EXISTS idx_outbox_pending
    ON outbox (created_at) WHERE published_at IS NULL;
`

// Migrate creates the applications/calls/analyses/outbox tables if they
// do not already exist. Idempotent; safe to call on every process start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}
