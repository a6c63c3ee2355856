package embeddingstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddl returns the embedding-table DDL with the vector dimension baked in,
// matching the embedding model's output width (e.g. 768 for
// nomic-embed-text). Changing the dimension after the first migration
// requires a manual schema change.
func ddl(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS candidate_embeddings (
    candidate_id TEXT        PRIMARY KEY,
    embedding    vector(%[1]d) NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_offer_embeddings (
    job_offer_id TEXT        PRIMARY KEY,
    embedding    vector(%[1]d) NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_candidate_embeddings_hnsw
    ON candidate_embeddings USING hnsw (embedding vector_cosine_ops);

CREATE INDEX IF NOT EXISTS idx_job_offer_embeddings_hnsw
    ON job_offer_embeddings USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates the embedding tables and the vector extension if they
// do not already exist. Idempotent; safe to call on every process start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddl(embeddingDimensions)); err != nil {
		return fmt.Errorf("embeddingstore: migrate: %w", err)
	}
	return nil
}
