// Package mock provides test doubles for the domain package's capability
// interfaces, following the same configurable-fields-plus-call-recording
// shape used throughout this codebase's provider mocks.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/MrWong99/screeningd/internal/domain"
)

var (
	_ domain.ApplicationRepository = (*ApplicationRepository)(nil)
	_ domain.BiosPort              = (*BiosPort)(nil)
	_ domain.OpportunitiesPort     = (*OpportunitiesPort)(nil)
	_ domain.EventPublisher        = (*EventPublisher)(nil)
	_ domain.CallRepository        = (*CallRepository)(nil)
	_ domain.AnalysisRepository    = (*AnalysisRepository)(nil)
	_ domain.EmbeddingStore        = (*EmbeddingStore)(nil)
)

// ApplicationRepository is a mock implementation of domain.ApplicationRepository.
type ApplicationRepository struct {
	mu sync.Mutex

	Applications map[string]*domain.ScreeningApplication // key: normalizedUsername+"\x00"+externalJobOfferID
	ByID         map[domain.ApplicationID]*domain.ScreeningApplication
	Candidates   map[domain.CandidateID]*domain.Candidate
	JobOffers    map[domain.JobOfferID]*domain.JobOffer

	FindErr error
	GetErr  error
	SaveErr error

	SaveCalls int
}

// NewApplicationRepository returns an empty, ready-to-use mock.
func NewApplicationRepository() *ApplicationRepository {
	return &ApplicationRepository{
		Applications: make(map[string]*domain.ScreeningApplication),
		ByID:         make(map[domain.ApplicationID]*domain.ScreeningApplication),
		Candidates:   make(map[domain.CandidateID]*domain.Candidate),
		JobOffers:    make(map[domain.JobOfferID]*domain.JobOffer),
	}
}

func (m *ApplicationRepository) FindByUsernameAndJobOffer(_ context.Context, normalizedUsername, externalJobOfferID string) (*domain.ScreeningApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	return m.Applications[normalizedUsername+"\x00"+externalJobOfferID], nil
}

func (m *ApplicationRepository) GetApplication(_ context.Context, id domain.ApplicationID) (*domain.ScreeningApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.ByID[id], nil
}

func (m *ApplicationRepository) GetCandidate(_ context.Context, id domain.CandidateID) (*domain.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Candidates[id], nil
}

func (m *ApplicationRepository) GetJobOffer(_ context.Context, id domain.JobOfferID) (*domain.JobOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.JobOffers[id], nil
}

func (m *ApplicationRepository) SaveApplicationGraph(_ context.Context, candidate domain.Candidate, jobOffer domain.JobOffer, application domain.ScreeningApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Candidates[candidate.ID] = &candidate
	m.JobOffers[jobOffer.ID] = &jobOffer
	m.ByID[application.ID] = &application
	m.Applications[strings.ToLower(candidate.Username)+"\x00"+jobOffer.ExternalID] = &application
	return nil
}

// BiosPort is a mock implementation of domain.BiosPort.
type BiosPort struct {
	mu sync.Mutex

	Candidate *domain.Candidate
	Err       error
	Calls     []string
}

func (m *BiosPort) GetBio(_ context.Context, username string) (*domain.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, username)
	return m.Candidate, m.Err
}

// OpportunitiesPort is a mock implementation of domain.OpportunitiesPort.
type OpportunitiesPort struct {
	mu sync.Mutex

	JobOffer *domain.JobOffer
	Err      error
	Calls    []string
}

func (m *OpportunitiesPort) GetOpportunity(_ context.Context, externalID string) (*domain.JobOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, externalID)
	return m.JobOffer, m.Err
}

// EventPublisher is a mock implementation of domain.EventPublisher.
type EventPublisher struct {
	mu sync.Mutex

	Err        error
	Published  []domain.Event
}

func (m *EventPublisher) Publish(_ context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, event)
	return nil
}

// PublishedEvents returns a snapshot of the events recorded so far.
func (m *EventPublisher) PublishedEvents() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.Published))
	copy(out, m.Published)
	return out
}

// CallRepository is a mock implementation of domain.CallRepository.
type CallRepository struct {
	mu sync.Mutex

	Calls map[domain.CallID]*domain.ScreeningCall

	SaveErr             error
	UpdateTranscriptErr error
	MarkCompletedErr    error
	MarkFailedErr       error
}

func NewCallRepository() *CallRepository {
	return &CallRepository{Calls: make(map[domain.CallID]*domain.ScreeningCall)}
}

func (m *CallRepository) GetCall(_ context.Context, id domain.CallID) (*domain.ScreeningCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[id], nil
}

func (m *CallRepository) SaveCall(_ context.Context, call domain.ScreeningCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Calls[call.ID] = &call
	return nil
}

func (m *CallRepository) UpdateTranscript(_ context.Context, id domain.CallID, transcript []domain.TranscriptSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateTranscriptErr != nil {
		return m.UpdateTranscriptErr
	}
	if call, ok := m.Calls[id]; ok {
		call.Transcript = transcript
	}
	return nil
}

func (m *CallRepository) MarkCompleted(_ context.Context, id domain.CallID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkCompletedErr != nil {
		return m.MarkCompletedErr
	}
	if call, ok := m.Calls[id]; ok {
		call.Status = domain.CallCompleted
	}
	return nil
}

func (m *CallRepository) MarkFailed(_ context.Context, id domain.CallID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkFailedErr != nil {
		return m.MarkFailedErr
	}
	if call, ok := m.Calls[id]; ok {
		call.Status = domain.CallFailed
	}
	return nil
}

// AnalysisRepository is a mock implementation of domain.AnalysisRepository.
type AnalysisRepository struct {
	mu sync.Mutex

	ByApplication map[domain.ApplicationID]*domain.ScreeningAnalysis
	UpsertErr     error
	GetErr        error
}

func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{ByApplication: make(map[domain.ApplicationID]*domain.ScreeningAnalysis)}
}

func (m *AnalysisRepository) UpsertByApplication(_ context.Context, analysis domain.ScreeningAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.ByApplication[analysis.ApplicationID] = &analysis
	return nil
}

func (m *AnalysisRepository) GetByApplication(_ context.Context, id domain.ApplicationID) (*domain.ScreeningAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.ByApplication[id], nil
}

// EmbeddingStore is a mock implementation of domain.EmbeddingStore.
type EmbeddingStore struct {
	mu sync.Mutex

	CandidateEmbeddings map[domain.CandidateID][]float32
	JobOfferEmbeddings  map[domain.JobOfferID][]float32
	SaveErr             error
}

func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{
		CandidateEmbeddings: make(map[domain.CandidateID][]float32),
		JobOfferEmbeddings:  make(map[domain.JobOfferID][]float32),
	}
}

func (m *EmbeddingStore) SaveCandidateEmbedding(_ context.Context, id domain.CandidateID, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.CandidateEmbeddings[id] = embedding
	return nil
}

func (m *EmbeddingStore) SaveJobOfferEmbedding(_ context.Context, id domain.JobOfferID, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.JobOfferEmbeddings[id] = embedding
	return nil
}

func (m *EmbeddingStore) GetCandidateEmbedding(_ context.Context, id domain.CandidateID) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CandidateEmbeddings[id], nil
}

func (m *EmbeddingStore) GetJobOfferEmbedding(_ context.Context, id domain.JobOfferID) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.JobOfferEmbeddings[id], nil
}
