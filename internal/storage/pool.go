package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps a pgxpool.Pool and exposes the four repository adapters
// sharing it: ApplicationRepository, CallRepository, AnalysisRepository,
// and an outbox.Store.
type Pool struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and runs Migrate before returning.
func Open(ctx context.Context, dsn string) (*Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (p *Pool) Close() { p.pool.Close() }

// Ping verifies the pool still has a usable connection, for use as a
// readiness checker.
func (p *Pool) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

// Applications returns the applications/candidates/job-offers repository.
func (p *Pool) Applications() *ApplicationRepository { return &ApplicationRepository{pool: p.pool} }

// Calls returns the calls repository.
func (p *Pool) Calls() *CallRepository { return &CallRepository{pool: p.pool} }

// Analyses returns the analyses repository.
func (p *Pool) Analyses() *AnalysisRepository { return &AnalysisRepository{pool: p.pool} }

// Outbox returns the outbox.Store adapter.
func (p *Pool) Outbox() *OutboxStore { return &OutboxStore{pool: p.pool} }
