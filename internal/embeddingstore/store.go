// Package embeddingstore is the pgvector-backed persistence layer for
// candidate and job offer embeddings, plus the vector lookup whose
// results the analysis service compares by cosine similarity.
package embeddingstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/screeningd/internal/domain"
)

var _ domain.EmbeddingStore = (*Store)(nil)

// Store is a PostgreSQL/pgvector-backed domain.EmbeddingStore. A single
// connection pool backs both the candidate_embeddings and
// job_offer_embeddings tables.
//
// Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool to dsn, registers pgvector types on
// every connection, and runs Migrate to ensure both embedding tables
// exist with the given vector dimension.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("embeddingstore: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("embeddingstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("embeddingstore: ping: %w", err)
	}
	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("embeddingstore: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) SaveCandidateEmbedding(ctx context.Context, id domain.CandidateID, embedding []float32) error {
	const q = `
		INSERT INTO candidate_embeddings (candidate_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (candidate_id) DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = now()`
	if _, err := s.pool.Exec(ctx, q, id.String(), pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("embeddingstore: save candidate embedding: %w", err)
	}
	return nil
}

func (s *Store) SaveJobOfferEmbedding(ctx context.Context, id domain.JobOfferID, embedding []float32) error {
	const q = `
		INSERT INTO job_offer_embeddings (job_offer_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (job_offer_id) DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = now()`
	if _, err := s.pool.Exec(ctx, q, id.String(), pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("embeddingstore: save job offer embedding: %w", err)
	}
	return nil
}

func (s *Store) GetCandidateEmbedding(ctx context.Context, id domain.CandidateID) ([]float32, error) {
	const q = `SELECT embedding FROM candidate_embeddings WHERE candidate_id = $1`
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, q, id.String()).Scan(&vec)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("embeddingstore: get candidate embedding: %w", err)
	}
	return vec.Slice(), nil
}

func (s *Store) GetJobOfferEmbedding(ctx context.Context, id domain.JobOfferID) ([]float32, error) {
	const q = `SELECT embedding FROM job_offer_embeddings WHERE job_offer_id = $1`
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, q, id.String()).Scan(&vec)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("embeddingstore: get job offer embedding: %w", err)
	}
	return vec.Slice(), nil
}

// Lookup returns a domain.EmbeddingsLookup bound to this store, for
// wiring into the analysis service. Either or both embeddings may come
// back nil when not yet computed; per-call errors are discarded and the
// affected embedding comes back nil, since the analysis service treats
// a lookup failure identically to "not yet available".
func (s *Store) Lookup(ctx context.Context, candidateID domain.CandidateID, jobOfferID domain.JobOfferID) (candidateEmbedding, jobOfferEmbedding []float32) {
	candidateEmbedding, _ = s.GetCandidateEmbedding(ctx, candidateID)
	jobOfferEmbedding, _ = s.GetJobOfferEmbedding(ctx, jobOfferID)
	return candidateEmbedding, jobOfferEmbedding
}
