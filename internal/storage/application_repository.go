package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/screeningd/internal/domain"
)

var _ domain.ApplicationRepository = (*ApplicationRepository)(nil)

// ApplicationRepository is the PostgreSQL-backed
// domain.ApplicationRepository.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func (r *ApplicationRepository) FindByUsernameAndJobOffer(ctx context.Context, normalizedUsername, externalJobOfferID string) (*domain.ScreeningApplication, error) {
	const q = `
		SELECT a.id, a.candidate_id, a.job_offer_id, a.created_at
		FROM applications a
		JOIN candidates c ON c.id = a.candidate_id
		JOIN job_offers j ON j.id = a.job_offer_id
		WHERE lower(c.username) = $1 AND j.external_id = $2`
	row := r.pool.QueryRow(ctx, q, normalizedUsername, externalJobOfferID)
	app, err := scanApplication(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: find application: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) GetApplication(ctx context.Context, id domain.ApplicationID) (*domain.ScreeningApplication, error) {
	const q = `SELECT id, candidate_id, job_offer_id, created_at FROM applications WHERE id = $1`
	row := r.pool.QueryRow(ctx, q, id.String())
	app, err := scanApplication(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get application: %w", err)
	}
	return app, nil
}

func scanApplication(row pgx.Row) (*domain.ScreeningApplication, error) {
	var idStr, candidateIDStr, jobOfferIDStr string
	var app domain.ScreeningApplication
	if err := row.Scan(&idStr, &candidateIDStr, &jobOfferIDStr, &app.CreatedAt); err != nil {
		return nil, err
	}
	id, err := domain.ParseApplicationID(idStr)
	if err != nil {
		return nil, err
	}
	candidateID, err := domain.ParseCandidateID(candidateIDStr)
	if err != nil {
		return nil, err
	}
	jobOfferID, err := domain.ParseJobOfferID(jobOfferIDStr)
	if err != nil {
		return nil, err
	}
	app.ID = id
	app.CandidateID = candidateID
	app.JobOfferID = jobOfferID
	return &app, nil
}

func (r *ApplicationRepository) GetCandidate(ctx context.Context, id domain.CandidateID) (*domain.Candidate, error) {
	const q = `SELECT id, username, full_name, skills, jobs FROM candidates WHERE id = $1`
	row := r.pool.QueryRow(ctx, q, id.String())

	var idStr string
	var candidate domain.Candidate
	var skillsJSON, jobsJSON []byte
	if err := row.Scan(&idStr, &candidate.Username, &candidate.FullName, &skillsJSON, &jobsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: get candidate: %w", err)
	}
	parsedID, err := domain.ParseCandidateID(idStr)
	if err != nil {
		return nil, err
	}
	candidate.ID = parsedID
	if err := json.Unmarshal(skillsJSON, &candidate.Skills); err != nil {
		return nil, fmt.Errorf("storage: unmarshal candidate skills: %w", err)
	}
	if err := json.Unmarshal(jobsJSON, &candidate.Jobs); err != nil {
		return nil, fmt.Errorf("storage: unmarshal candidate jobs: %w", err)
	}
	return &candidate, nil
}

func (r *ApplicationRepository) GetJobOffer(ctx context.Context, id domain.JobOfferID) (*domain.JobOffer, error) {
	const q = `SELECT id, external_id, objective, strengths, responsibilities FROM job_offers WHERE id = $1`
	row := r.pool.QueryRow(ctx, q, id.String())

	var idStr string
	var jobOffer domain.JobOffer
	var strengthsJSON, responsibilitiesJSON []byte
	if err := row.Scan(&idStr, &jobOffer.ExternalID, &jobOffer.Objective, &strengthsJSON, &responsibilitiesJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: get job offer: %w", err)
	}
	parsedID, err := domain.ParseJobOfferID(idStr)
	if err != nil {
		return nil, err
	}
	jobOffer.ID = parsedID
	if err := json.Unmarshal(strengthsJSON, &jobOffer.Strengths); err != nil {
		return nil, fmt.Errorf("storage: unmarshal job offer strengths: %w", err)
	}
	if err := json.Unmarshal(responsibilitiesJSON, &jobOffer.Responsibilities); err != nil {
		return nil, fmt.Errorf("storage: unmarshal job offer responsibilities: %w", err)
	}
	return &jobOffer, nil
}

// SaveApplicationGraph upserts the candidate, the job offer, and the
// application row in a single transaction so a crash between writes can
// never leave a partial graph visible.
func (r *ApplicationRepository) SaveApplicationGraph(ctx context.Context, candidate domain.Candidate, jobOffer domain.JobOffer, application domain.ScreeningApplication) error {
	skillsJSON, err := json.Marshal(candidate.Skills)
	if err != nil {
		return fmt.Errorf("storage: marshal candidate skills: %w", err)
	}
	jobsJSON, err := json.Marshal(candidate.Jobs)
	if err != nil {
		return fmt.Errorf("storage: marshal candidate jobs: %w", err)
	}
	strengthsJSON, err := json.Marshal(jobOffer.Strengths)
	if err != nil {
		return fmt.Errorf("storage: marshal job offer strengths: %w", err)
	}
	responsibilitiesJSON, err := json.Marshal(jobOffer.Responsibilities)
	if err != nil {
		return fmt.Errorf("storage: marshal job offer responsibilities: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO candidates (id, username, full_name, skills, jobs)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username, full_name = EXCLUDED.full_name,
			skills = EXCLUDED.skills, jobs = EXCLUDED.jobs`,
		candidate.ID.String(), candidate.Username, candidate.FullName, skillsJSON, jobsJSON,
	); err != nil {
		return fmt.Errorf("storage: upsert candidate: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO job_offers (id, external_id, objective, strengths, responsibilities)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			external_id = EXCLUDED.external_id, objective = EXCLUDED.objective,
			strengths = EXCLUDED.strengths, responsibilities = EXCLUDED.responsibilities`,
		jobOffer.ID.String(), jobOffer.ExternalID, jobOffer.Objective, strengthsJSON, responsibilitiesJSON,
	); err != nil {
		return fmt.Errorf("storage: upsert job offer: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO applications (id, candidate_id, job_offer_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		application.ID.String(), candidate.ID.String(), jobOffer.ID.String(), application.CreatedAt,
	); err != nil {
		return fmt.Errorf("storage: insert application: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit application graph: %w", err)
	}
	return nil
}
