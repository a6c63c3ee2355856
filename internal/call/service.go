// Package call maintains the in-process active-call registry and the
// call lifecycle operations (start/end) the dialog engine drives.
package call

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
)

// Prompt is the set of prepared questions and role context handed to the
// dialog engine for one application's interview.
type Prompt struct {
	PreparedQuestions []string
	RoleContext       string
}

// defaultPrompt is used whenever no call-prompt subscriber has generated
// one yet for an application (e.g. because embeddings were still being
// computed when the candidate joined the call).
func defaultPrompt() Prompt {
	return Prompt{
		PreparedQuestions: []string{"Tell me about your background."},
		RoleContext:       "Screening call.",
	}
}

// Service maintains the active-call registry (application id → call id)
// and the generated call-prompt registry (application id → Prompt).
//
// The active-call registry is shared-mutable state: StartCall's
// check-and-register against it is atomic under a single lock
// (TryRegisterActiveCall), so two goroutines racing to open a call for
// the same application id cannot both win. Past that handshake,
// mutation for a given application is expected to come from a single
// dialog-engine goroutine.
//
// Safe for concurrent use.
type Service struct {
	repo      domain.CallRepository
	publisher domain.EventPublisher

	mu      sync.RWMutex
	active  map[domain.ApplicationID]domain.CallID
	prompts map[domain.ApplicationID]Prompt
}

// New constructs a Service. repo and publisher may be
// domain.NullCallRepository/a no-op publisher in tests that do not care
// about persistence.
func New(repo domain.CallRepository, publisher domain.EventPublisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		active:    make(map[domain.ApplicationID]domain.CallID),
		prompts:   make(map[domain.ApplicationID]Prompt),
	}
}

// IsApplicationInCall reports whether applicationID currently has an
// active (in-progress) call registered.
func (s *Service) IsApplicationInCall(applicationID domain.ApplicationID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[applicationID]
	return ok
}

// RegisterActiveCall records callID as the active call for applicationID.
func (s *Service) RegisterActiveCall(applicationID domain.ApplicationID, callID domain.CallID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[applicationID] = callID
}

// TryRegisterActiveCall atomically checks applicationID for an existing
// active call and, if none is registered, registers callID as the new
// one, all under a single lock acquisition. This closes the gap a
// separate IsApplicationInCall/RegisterActiveCall pair would leave
// between racing callers: reports true ("already active", callID NOT
// registered) or false ("registered").
func (s *Service) TryRegisterActiveCall(applicationID domain.ApplicationID, callID domain.CallID) (alreadyActive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[applicationID]; ok {
		return true
	}
	s.active[applicationID] = callID
	return false
}

// UnregisterActiveCall removes applicationID from the active-call
// registry, if present.
func (s *Service) UnregisterActiveCall(applicationID domain.ApplicationID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, applicationID)
}

// SetPromptForApplication stores the prepared call prompt for
// applicationID. Called by the call-prompt subscriber once generation
// completes.
func (s *Service) SetPromptForApplication(applicationID domain.ApplicationID, prompt Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[applicationID] = prompt
}

// GetPromptForApplication returns the prepared prompt for applicationID,
// or a generic fallback prompt if none has been prepared yet.
func (s *Service) GetPromptForApplication(applicationID domain.ApplicationID) Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prompt, ok := s.prompts[applicationID]
	if !ok {
		return defaultPrompt()
	}
	return prompt
}

// StartCall registers a new in-progress call for applicationID and
// persists it. The active-call check and registration happen atomically
// under one lock (TryRegisterActiveCall) before the record is ever
// created, so two callers racing to start a call for the same
// applicationID cannot both succeed: the loser gets ErrCallAlreadyActive
// and never reaches the repository.
func (s *Service) StartCall(ctx context.Context, applicationID domain.ApplicationID) (*domain.ScreeningCall, error) {
	call := domain.ScreeningCall{
		ID:            domain.NewCallID(),
		ApplicationID: applicationID,
		Status:        domain.CallInProgress,
		StartedAt:     time.Now().UTC(),
	}

	if alreadyActive := s.TryRegisterActiveCall(applicationID, call.ID); alreadyActive {
		return nil, apperr.Wrap(apperr.ErrCallAlreadyActive, "application already has an active call", nil)
	}

	if err := s.repo.SaveCall(ctx, call); err != nil {
		s.UnregisterActiveCall(applicationID)
		return nil, apperr.Wrap(apperr.ErrUpstreamFailure, "saving call record", err)
	}
	return &call, nil
}

// EndCall unregisters applicationID's active call, persists the final
// transcript, marks the call completed, and publishes CallFinished. It is
// the caller's responsibility to ensure this is invoked exactly once per
// call.
func (s *Service) EndCall(ctx context.Context, applicationID domain.ApplicationID, callID domain.CallID, transcript []domain.TranscriptSegment) error {
	s.UnregisterActiveCall(applicationID)

	if err := s.repo.UpdateTranscript(ctx, callID, transcript); err != nil {
		return apperr.Wrap(apperr.ErrUpstreamFailure, "persisting call transcript", err)
	}
	if err := s.repo.MarkCompleted(ctx, callID); err != nil {
		return apperr.Wrap(apperr.ErrUpstreamFailure, "marking call completed", err)
	}

	event := domain.CallFinished{
		ApplicationID: applicationID,
		CallID:        callID,
		At:            time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return apperr.Wrap(apperr.ErrBrokerUnavailable, "publishing CallFinished", err)
	}
	return nil
}
