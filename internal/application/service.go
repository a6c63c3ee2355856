// Package application implements the screening-application use case:
// resolving a candidate and job offer from the upstream lookup service,
// persisting the application graph, and publishing JobOfferApplied.
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/keyedlock"
	"github.com/MrWong99/screeningd/internal/workerpool"
)

// Result is the outcome of CreateApplication.
type Result struct {
	ApplicationID domain.ApplicationID
	Created       bool
}

// Service implements the create-application use case.
//
// Safe for concurrent use.
type Service struct {
	bios          domain.BiosPort
	opportunities domain.OpportunitiesPort
	repo          domain.ApplicationRepository
	publisher     domain.EventPublisher
	pool          *workerpool.Pool
	locks         *keyedlock.Table
}

// New constructs a Service. pool bounds the goroutines used to offload the
// event publish so CreateApplication can still observe its result
// synchronously.
func New(bios domain.BiosPort, opportunities domain.OpportunitiesPort, repo domain.ApplicationRepository, publisher domain.EventPublisher, pool *workerpool.Pool) *Service {
	return &Service{
		bios:          bios,
		opportunities: opportunities,
		repo:          repo,
		publisher:     publisher,
		pool:          pool,
		locks:         keyedlock.New(),
	}
}

// CreateApplication resolves username against job_offer_id, creating a new
// ScreeningApplication (and its backing Candidate/JobOffer graph) the first
// time the pair is seen. Subsequent calls for the same pair return the
// existing application id with Created=false.
func (s *Service) CreateApplication(ctx context.Context, username, jobOfferID string) (Result, error) {
	username = strings.TrimSpace(username)
	jobOfferID = strings.TrimSpace(jobOfferID)
	if username == "" || jobOfferID == "" {
		return Result{}, apperr.Wrap(apperr.ErrInvalidArgument, "username and job_offer_id are required", nil)
	}

	normalizedUsername := strings.ToLower(username)
	unlock := s.locks.Lock(normalizedUsername + "\x00" + jobOfferID)
	defer unlock()

	existing, err := s.repo.FindByUsernameAndJobOffer(ctx, normalizedUsername, jobOfferID)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.ErrUpstreamFailure, "looking up existing application", err)
	}
	if existing != nil {
		return Result{ApplicationID: existing.ID, Created: false}, nil
	}

	bio, err := s.bios.GetBio(ctx, username)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.ErrUpstreamFailure, "fetching candidate bio", err)
	}
	if bio == nil {
		return Result{}, apperr.Wrap(apperr.ErrNotFound, "Candidate not found", nil)
	}

	opportunity, err := s.opportunities.GetOpportunity(ctx, jobOfferID)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.ErrUpstreamFailure, "fetching job offer", err)
	}
	if opportunity == nil {
		return Result{}, apperr.Wrap(apperr.ErrNotFound, "Job offer not found", nil)
	}

	candidate := domain.Candidate{
		ID:       domain.NewCandidateID(),
		Username: bio.Username,
		FullName: bio.FullName,
		Skills:   bio.Skills,
		Jobs:     bio.Jobs,
	}
	jobOffer := domain.JobOffer{
		ID:               domain.NewJobOfferID(),
		ExternalID:       opportunity.ExternalID,
		Objective:        opportunity.Objective,
		Strengths:        opportunity.Strengths,
		Responsibilities: opportunity.Responsibilities,
	}
	application := domain.ScreeningApplication{
		ID:          domain.NewApplicationID(),
		CandidateID: candidate.ID,
		JobOfferID:  jobOffer.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.SaveApplicationGraph(ctx, candidate, jobOffer, application); err != nil {
		return Result{}, apperr.Wrap(apperr.ErrUpstreamFailure, "saving application graph", err)
	}

	event := domain.JobOfferApplied{
		CandidateID:   candidate.ID,
		JobOfferID:    jobOffer.ID,
		ApplicationID: application.ID,
		At:            time.Now().UTC(),
	}
	_, err = workerpool.RunBlocking(ctx, s.pool, func() (struct{}, error) {
		return struct{}{}, s.publisher.Publish(ctx, event)
	})
	if err != nil {
		return Result{}, apperr.Wrap(apperr.ErrBrokerUnavailable, fmt.Sprintf("publishing JobOfferApplied for application %s", application.ID), err)
	}

	return Result{ApplicationID: application.ID, Created: true}, nil
}
