package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/screeningd/internal/domain"
)

var _ domain.AnalysisRepository = (*AnalysisRepository)(nil)

// AnalysisRepository is the PostgreSQL-backed domain.AnalysisRepository.
type AnalysisRepository struct {
	pool *pgxpool.Pool
}

func (r *AnalysisRepository) UpsertByApplication(ctx context.Context, analysis domain.ScreeningAnalysis) error {
	skillsJSON, err := json.Marshal(analysis.Skills)
	if err != nil {
		return fmt.Errorf("storage: marshal analysis skills: %w", err)
	}
	const q = `
		INSERT INTO analyses (application_id, id, fit_score, skills, completed_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO UPDATE SET
			id = EXCLUDED.id, fit_score = EXCLUDED.fit_score, skills = EXCLUDED.skills,
			completed_at = EXCLUDED.completed_at, status = EXCLUDED.status`
	if _, err := r.pool.Exec(ctx, q,
		analysis.ApplicationID.String(), analysis.ID.String(), analysis.FitScore, skillsJSON,
		analysis.CompletedAt, analysis.Status,
	); err != nil {
		return fmt.Errorf("storage: upsert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByApplication(ctx context.Context, id domain.ApplicationID) (*domain.ScreeningAnalysis, error) {
	const q = `SELECT id, fit_score, skills, completed_at, status FROM analyses WHERE application_id = $1`
	row := r.pool.QueryRow(ctx, q, id.String())

	var idStr string
	var analysis domain.ScreeningAnalysis
	var skillsJSON []byte
	if err := row.Scan(&idStr, &analysis.FitScore, &skillsJSON, &analysis.CompletedAt, &analysis.Status); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: get analysis: %w", err)
	}
	parsedID, err := domain.ParseAnalysisID(idStr)
	if err != nil {
		return nil, err
	}
	analysis.ID = parsedID
	analysis.ApplicationID = id
	if err := json.Unmarshal(skillsJSON, &analysis.Skills); err != nil {
		return nil, fmt.Errorf("storage: unmarshal analysis skills: %w", err)
	}
	return &analysis, nil
}
