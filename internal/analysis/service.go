// Package analysis computes and persists the fit-score analysis for a
// finished screening call: embedding-similarity when both candidate and
// job offer embeddings exist, a rule-based fallback otherwise.
package analysis

import (
	"context"
	"time"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
)

// Result is the outcome of GetAnalysisForApplication.
type Result struct {
	FoundApplication bool
	Analysis         *domain.ScreeningAnalysis
}

// Service runs and persists fit-score analyses.
type Service struct {
	calls         domain.CallReader
	applications  applicationReader
	embeddings    domain.EmbeddingsLookup
	repo          domain.AnalysisRepository
	publisher     domain.EventPublisher
}

// applicationReader is the narrow read surface this service needs from
// the applications graph: the application record itself plus its
// candidate and job offer.
type applicationReader interface {
	domain.ApplicationReader
	domain.CandidateReader
	domain.JobOfferReader
}

// New constructs a Service. embeddings may be nil, in which case scoring
// always falls back to the rule-based path.
func New(calls domain.CallReader, applications applicationReader, embeddings domain.EmbeddingsLookup, repo domain.AnalysisRepository, publisher domain.EventPublisher) *Service {
	return &Service{
		calls:        calls,
		applications: applications,
		embeddings:   embeddings,
		repo:         repo,
		publisher:    publisher,
	}
}

// GetAnalysisForApplication looks up the application, then its analysis
// if one has been persisted. FoundApplication is false when the
// application itself does not exist; Analysis is nil when the
// application exists but no analysis has completed yet.
func (s *Service) GetAnalysisForApplication(ctx context.Context, applicationID domain.ApplicationID) (Result, error) {
	app, err := s.applications.GetApplication(ctx, applicationID)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.ErrUpstreamFailure, "looking up application", err)
	}
	if app == nil {
		return Result{FoundApplication: false}, nil
	}
	analysis, err := s.repo.GetByApplication(ctx, applicationID)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.ErrUpstreamFailure, "looking up analysis", err)
	}
	return Result{FoundApplication: true, Analysis: analysis}, nil
}

// RunAnalysis scores callID's transcript against its application's
// candidate and job offer, persists the result, and publishes
// AnalysisCompleted. If the call cannot be found, a zero-score completed
// analysis is persisted so GET keeps working, matching the behavior when
// an application has no prior job history to score against.
func (s *Service) RunAnalysis(ctx context.Context, applicationID domain.ApplicationID, callID domain.CallID) error {
	call, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		return apperr.Wrap(apperr.ErrUpstreamFailure, "looking up call", err)
	}
	if call == nil {
		return s.persist(ctx, applicationID, 0, nil, domain.AnalysisStatusCompleted, true)
	}

	var candidate *domain.Candidate
	var jobOffer *domain.JobOffer
	if app, err := s.applications.GetApplication(ctx, applicationID); err != nil {
		return apperr.Wrap(apperr.ErrUpstreamFailure, "looking up application", err)
	} else if app != nil {
		candidate, err = s.applications.GetCandidate(ctx, app.CandidateID)
		if err != nil {
			return apperr.Wrap(apperr.ErrUpstreamFailure, "looking up candidate", err)
		}
		jobOffer, err = s.applications.GetJobOffer(ctx, app.JobOfferID)
		if err != nil {
			return apperr.Wrap(apperr.ErrUpstreamFailure, "looking up job offer", err)
		}
	}

	var candidateEmbedding, jobOfferEmbedding []float32
	if s.embeddings != nil && candidate != nil && jobOffer != nil {
		candidateEmbedding, jobOfferEmbedding = s.embeddings(ctx, candidate.ID, jobOffer.ID)
	}

	fitScore, skills := scoreAndSkills(call.Transcript, candidate, jobOffer, candidateEmbedding, jobOfferEmbedding)
	return s.persist(ctx, applicationID, fitScore, skills, domain.AnalysisStatusCompleted, true)
}

// PersistAnalysisFailed persists a zero-score failed analysis so GET can
// surface a terminal state to the caller. It never publishes
// AnalysisCompleted.
func (s *Service) PersistAnalysisFailed(ctx context.Context, applicationID domain.ApplicationID) error {
	return s.persist(ctx, applicationID, 0, nil, domain.AnalysisStatusFailed, false)
}

func (s *Service) persist(ctx context.Context, applicationID domain.ApplicationID, fitScore int, skills []string, status domain.AnalysisStatus, publish bool) error {
	analysis := domain.ScreeningAnalysis{
		ID:            domain.NewAnalysisID(),
		ApplicationID: applicationID,
		FitScore:      fitScore,
		Skills:        skills,
		CompletedAt:   time.Now().UTC(),
		Status:        status,
	}
	if err := s.repo.UpsertByApplication(ctx, analysis); err != nil {
		return apperr.Wrap(apperr.ErrUpstreamFailure, "persisting analysis", err)
	}
	if !publish {
		return nil
	}
	event := domain.AnalysisCompleted{
		ApplicationID: applicationID,
		AnalysisID:    analysis.ID,
		At:            time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return apperr.Wrap(apperr.ErrBrokerUnavailable, "publishing AnalysisCompleted", err)
	}
	return nil
}
