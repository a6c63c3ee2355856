package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/screeningd/internal/domain"
)

var _ domain.CallRepository = (*CallRepository)(nil)

// CallRepository is the PostgreSQL-backed domain.CallRepository.
type CallRepository struct {
	pool *pgxpool.Pool
}

func (r *CallRepository) GetCall(ctx context.Context, id domain.CallID) (*domain.ScreeningCall, error) {
	const q = `
		SELECT id, application_id, status, started_at, ended_at, transcript
		FROM calls WHERE id = $1`
	row := r.pool.QueryRow(ctx, q, id.String())

	var idStr, applicationIDStr string
	var call domain.ScreeningCall
	var transcriptJSON []byte
	if err := row.Scan(&idStr, &applicationIDStr, &call.Status, &call.StartedAt, &call.EndedAt, &transcriptJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: get call: %w", err)
	}
	parsedID, err := domain.ParseCallID(idStr)
	if err != nil {
		return nil, err
	}
	applicationID, err := domain.ParseApplicationID(applicationIDStr)
	if err != nil {
		return nil, err
	}
	call.ID = parsedID
	call.ApplicationID = applicationID
	if err := json.Unmarshal(transcriptJSON, &call.Transcript); err != nil {
		return nil, fmt.Errorf("storage: unmarshal transcript: %w", err)
	}
	return &call, nil
}

func (r *CallRepository) SaveCall(ctx context.Context, call domain.ScreeningCall) error {
	transcriptJSON, err := json.Marshal(call.Transcript)
	if err != nil {
		return fmt.Errorf("storage: marshal transcript: %w", err)
	}
	const q = `
		INSERT INTO calls (id, application_id, status, started_at, ended_at, transcript)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, ended_at = EXCLUDED.ended_at, transcript = EXCLUDED.transcript`
	if _, err := r.pool.Exec(ctx, q, call.ID.String(), call.ApplicationID.String(), call.Status, call.StartedAt, call.EndedAt, transcriptJSON); err != nil {
		return fmt.Errorf("storage: save call: %w", err)
	}
	return nil
}

func (r *CallRepository) UpdateTranscript(ctx context.Context, id domain.CallID, transcript []domain.TranscriptSegment) error {
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("storage: marshal transcript: %w", err)
	}
	const q = `UPDATE calls SET transcript = $2 WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id.String(), transcriptJSON); err != nil {
		return fmt.Errorf("storage: update transcript: %w", err)
	}
	return nil
}

func (r *CallRepository) MarkCompleted(ctx context.Context, id domain.CallID) error {
	return r.setStatus(ctx, id, domain.CallCompleted)
}

func (r *CallRepository) MarkFailed(ctx context.Context, id domain.CallID) error {
	return r.setStatus(ctx, id, domain.CallFailed)
}

func (r *CallRepository) setStatus(ctx context.Context, id domain.CallID, status domain.CallStatus) error {
	const q = `UPDATE calls SET status = $2, ended_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id.String(), status); err != nil {
		return fmt.Errorf("storage: set call status: %w", err)
	}
	return nil
}
