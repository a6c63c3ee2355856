package subscribers

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/screeningd/internal/analysis"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/domain/mock"
)

func TestAnalysis_RunAnalysis_PersistsOnSuccess(t *testing.T) {
	t.Parallel()

	calls := mock.NewCallRepository()
	applications := mock.NewApplicationRepository()
	analysisRepo := mock.NewAnalysisRepository()
	publisher := &mock.EventPublisher{}

	callID := domain.NewCallID()
	appID := domain.NewApplicationID()
	calls.Calls[callID] = &domain.ScreeningCall{
		ID: callID, ApplicationID: appID,
		Transcript: []domain.TranscriptSegment{
			{Speaker: domain.SpeakerEmma, Text: "Tell me about yourself"},
			{Speaker: domain.SpeakerCandidate, Text: "I have five years of experience"},
		},
	}

	service := analysis.New(calls, applications, nil, analysisRepo, publisher)
	handler := NewAnalysis(service)

	event := domain.CallFinished{ApplicationID: appID, CallID: callID}
	if err := handler.RunAnalysis(t.Context(), event); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	got, _ := analysisRepo.GetByApplication(t.Context(), appID)
	if got == nil || got.Status != domain.AnalysisStatusCompleted {
		t.Fatalf("expected a completed analysis, got %+v", got)
	}
	if len(publisher.PublishedEvents()) != 1 {
		t.Errorf("expected AnalysisCompleted to be published once")
	}
}

func TestAnalysis_RunAnalysis_PersistsFailedAfterExhaustion(t *testing.T) {
	t.Parallel()

	applications := mock.NewApplicationRepository()
	analysisRepo := mock.NewAnalysisRepository()
	publisher := &mock.EventPublisher{}

	service := analysis.New(&failingCallReader{err: errors.New("db unreachable")}, applications, nil, analysisRepo, publisher)
	handler := NewAnalysis(service)

	appID := domain.NewApplicationID()
	event := domain.CallFinished{ApplicationID: appID, CallID: domain.NewCallID()}
	if err := handler.RunAnalysis(t.Context(), event); err != nil {
		t.Fatalf("handler should swallow exhausted retries, got %v", err)
	}

	got, _ := analysisRepo.GetByApplication(t.Context(), appID)
	if got == nil || got.Status != domain.AnalysisStatusFailed {
		t.Fatalf("expected a failed analysis to be persisted, got %+v", got)
	}
	if len(publisher.PublishedEvents()) != 0 {
		t.Errorf("expected no AnalysisCompleted event on the failed path")
	}
}

type failingCallReader struct{ err error }

func (f *failingCallReader) GetCall(_ context.Context, _ domain.CallID) (*domain.ScreeningCall, error) {
	return nil, f.err
}
