package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/screeningd/internal/analysis"
	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/domain/mock"
)

func TestGetAnalysisForApplication_NotFound(t *testing.T) {
	t.Parallel()

	apps := mock.NewApplicationRepository()
	svc := analysis.New(mock.NewCallRepository(), apps, nil, mock.NewAnalysisRepository(), &mock.EventPublisher{})

	result, err := svc.GetAnalysisForApplication(t.Context(), domain.NewApplicationID())
	if err != nil {
		t.Fatalf("GetAnalysisForApplication: %v", err)
	}
	if result.FoundApplication {
		t.Error("expected FoundApplication=false for an unknown id")
	}
}

func TestGetAnalysisForApplication_FoundButNoAnalysisYet(t *testing.T) {
	t.Parallel()

	apps := mock.NewApplicationRepository()
	appID := domain.NewApplicationID()
	apps.ByID[appID] = &domain.ScreeningApplication{ID: appID}

	svc := analysis.New(mock.NewCallRepository(), apps, nil, mock.NewAnalysisRepository(), &mock.EventPublisher{})

	result, err := svc.GetAnalysisForApplication(t.Context(), appID)
	if err != nil {
		t.Fatalf("GetAnalysisForApplication: %v", err)
	}
	if !result.FoundApplication {
		t.Error("expected FoundApplication=true")
	}
	if result.Analysis != nil {
		t.Error("expected a nil analysis before any run completes")
	}
}

func TestRunAnalysis_MissingCallPersistsZeroScore(t *testing.T) {
	t.Parallel()

	apps := mock.NewApplicationRepository()
	analysisRepo := mock.NewAnalysisRepository()
	publisher := &mock.EventPublisher{}
	svc := analysis.New(mock.NewCallRepository(), apps, nil, analysisRepo, publisher)

	appID := domain.NewApplicationID()
	if err := svc.RunAnalysis(t.Context(), appID, domain.NewCallID()); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	got := analysisRepo.ByApplication[appID]
	if got == nil || got.FitScore != 0 || got.Status != domain.AnalysisStatusCompleted {
		t.Errorf("unexpected persisted analysis: %+v", got)
	}
	if len(publisher.PublishedEvents()) != 1 {
		t.Errorf("want 1 published event, got %d", len(publisher.PublishedEvents()))
	}
}

func TestRunAnalysis_ScoresFromTranscriptAndPublishes(t *testing.T) {
	t.Parallel()

	apps := mock.NewApplicationRepository()
	candidate := domain.Candidate{ID: domain.NewCandidateID(), Skills: []string{"Go"}}
	jobOffer := domain.JobOffer{ID: domain.NewJobOfferID(), Strengths: []string{"Go"}}
	appID := domain.NewApplicationID()
	apps.Candidates[candidate.ID] = &candidate
	apps.JobOffers[jobOffer.ID] = &jobOffer
	apps.ByID[appID] = &domain.ScreeningApplication{ID: appID, CandidateID: candidate.ID, JobOfferID: jobOffer.ID}

	calls := mock.NewCallRepository()
	callID := domain.NewCallID()
	calls.Calls[callID] = &domain.ScreeningCall{
		ID: callID,
		Transcript: []domain.TranscriptSegment{
			{Speaker: domain.SpeakerEmma, Text: "Tell me about your background."},
			{Speaker: domain.SpeakerCandidate, Text: "I have written a lot of Go."},
		},
	}

	analysisRepo := mock.NewAnalysisRepository()
	publisher := &mock.EventPublisher{}
	svc := analysis.New(calls, apps, nil, analysisRepo, publisher)

	if err := svc.RunAnalysis(t.Context(), appID, callID); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	got := analysisRepo.ByApplication[appID]
	if got == nil {
		t.Fatal("expected a persisted analysis")
	}
	want := 40 + 2*5 + 1*10
	if got.FitScore != want {
		t.Errorf("want fit score %d, got %d", want, got.FitScore)
	}
	if len(got.Skills) != 1 || got.Skills[0] != "Go" {
		t.Errorf("want matched skill [Go], got %v", got.Skills)
	}
	if len(publisher.PublishedEvents()) != 1 {
		t.Errorf("want 1 published event, got %d", len(publisher.PublishedEvents()))
	}
}

func TestRunAnalysis_UsesEmbeddingsWhenAvailable(t *testing.T) {
	t.Parallel()

	apps := mock.NewApplicationRepository()
	candidate := domain.Candidate{ID: domain.NewCandidateID()}
	jobOffer := domain.JobOffer{ID: domain.NewJobOfferID()}
	appID := domain.NewApplicationID()
	apps.Candidates[candidate.ID] = &candidate
	apps.JobOffers[jobOffer.ID] = &jobOffer
	apps.ByID[appID] = &domain.ScreeningApplication{ID: appID, CandidateID: candidate.ID, JobOfferID: jobOffer.ID}

	calls := mock.NewCallRepository()
	callID := domain.NewCallID()
	calls.Calls[callID] = &domain.ScreeningCall{ID: callID}

	var lookup domain.EmbeddingsLookup = func(_ context.Context, _ domain.CandidateID, _ domain.JobOfferID) ([]float32, []float32) {
		return []float32{1, 0}, []float32{1, 0}
	}

	analysisRepo := mock.NewAnalysisRepository()
	svc := analysis.New(calls, apps, lookup, analysisRepo, &mock.EventPublisher{})

	if err := svc.RunAnalysis(t.Context(), appID, callID); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	got := analysisRepo.ByApplication[appID]
	if got == nil || got.FitScore != 100 {
		t.Errorf("want fit score 100 from identical embeddings, got %+v", got)
	}
}

func TestRunAnalysis_PublishFailureSurfacesAsBrokerUnavailable(t *testing.T) {
	t.Parallel()

	apps := mock.NewApplicationRepository()
	calls := mock.NewCallRepository()
	publisher := &mock.EventPublisher{Err: errors.New("amqp: channel closed")}
	svc := analysis.New(calls, apps, nil, mock.NewAnalysisRepository(), publisher)

	err := svc.RunAnalysis(t.Context(), domain.NewApplicationID(), domain.NewCallID())
	if !errors.Is(err, apperr.ErrBrokerUnavailable) {
		t.Errorf("want ErrBrokerUnavailable, got %v", err)
	}
}

func TestPersistAnalysisFailed_DoesNotPublish(t *testing.T) {
	t.Parallel()

	analysisRepo := mock.NewAnalysisRepository()
	publisher := &mock.EventPublisher{}
	svc := analysis.New(mock.NewCallRepository(), mock.NewApplicationRepository(), nil, analysisRepo, publisher)

	appID := domain.NewApplicationID()
	if err := svc.PersistAnalysisFailed(t.Context(), appID); err != nil {
		t.Fatalf("PersistAnalysisFailed: %v", err)
	}

	got := analysisRepo.ByApplication[appID]
	if got == nil || got.Status != domain.AnalysisStatusFailed {
		t.Errorf("unexpected persisted analysis: %+v", got)
	}
	if len(publisher.PublishedEvents()) != 0 {
		t.Errorf("want no published events, got %d", len(publisher.PublishedEvents()))
	}
}
