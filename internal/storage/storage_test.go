package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/storage"
)

func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("SCREENINGD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SCREENINGD_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestPool(t *testing.T) *storage.Pool {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := storage.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestApplicationRepository_SaveAndFindRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := pool.Applications()

	candidate := domain.Candidate{ID: domain.NewCandidateID(), Username: "jdoe", FullName: "Jane Doe", Skills: []string{"Go"}}
	jobOffer := domain.JobOffer{ID: domain.NewJobOfferID(), ExternalID: "job-1", Objective: "Build things", Strengths: []string{"Go"}}
	application := domain.ScreeningApplication{ID: domain.NewApplicationID(), CandidateID: candidate.ID, JobOfferID: jobOffer.ID, CreatedAt: time.Now().UTC()}

	if err := repo.SaveApplicationGraph(ctx, candidate, jobOffer, application); err != nil {
		t.Fatalf("SaveApplicationGraph: %v", err)
	}

	found, err := repo.FindByUsernameAndJobOffer(ctx, "jdoe", "job-1")
	if err != nil {
		t.Fatalf("FindByUsernameAndJobOffer: %v", err)
	}
	if found == nil || found.ID != application.ID {
		t.Fatalf("expected to find the saved application, got %+v", found)
	}

	gotCandidate, err := repo.GetCandidate(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if gotCandidate == nil || len(gotCandidate.Skills) != 1 || gotCandidate.Skills[0] != "Go" {
		t.Errorf("unexpected candidate: %+v", gotCandidate)
	}
}

func TestCallRepository_SaveUpdateAndMarkCompleted(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	appRepo := pool.Applications()
	callRepo := pool.Calls()

	candidate := domain.Candidate{ID: domain.NewCandidateID(), Username: "asmith"}
	jobOffer := domain.JobOffer{ID: domain.NewJobOfferID(), ExternalID: "job-2"}
	application := domain.ScreeningApplication{ID: domain.NewApplicationID(), CandidateID: candidate.ID, JobOfferID: jobOffer.ID, CreatedAt: time.Now().UTC()}
	if err := appRepo.SaveApplicationGraph(ctx, candidate, jobOffer, application); err != nil {
		t.Fatalf("SaveApplicationGraph: %v", err)
	}

	call := domain.ScreeningCall{ID: domain.NewCallID(), ApplicationID: application.ID, Status: domain.CallInProgress, StartedAt: time.Now().UTC()}
	if err := callRepo.SaveCall(ctx, call); err != nil {
		t.Fatalf("SaveCall: %v", err)
	}

	transcript := []domain.TranscriptSegment{{Speaker: domain.SpeakerEmma, Text: "Hello"}}
	if err := callRepo.UpdateTranscript(ctx, call.ID, transcript); err != nil {
		t.Fatalf("UpdateTranscript: %v", err)
	}
	if err := callRepo.MarkCompleted(ctx, call.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	got, err := callRepo.GetCall(ctx, call.ID)
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if got.Status != domain.CallCompleted || len(got.Transcript) != 1 {
		t.Errorf("unexpected call after completion: %+v", got)
	}
}

func TestAnalysisRepository_UpsertByApplication(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	appRepo := pool.Applications()
	analysisRepo := pool.Analyses()

	candidate := domain.Candidate{ID: domain.NewCandidateID(), Username: "bwayne"}
	jobOffer := domain.JobOffer{ID: domain.NewJobOfferID(), ExternalID: "job-3"}
	application := domain.ScreeningApplication{ID: domain.NewApplicationID(), CandidateID: candidate.ID, JobOfferID: jobOffer.ID, CreatedAt: time.Now().UTC()}
	if err := appRepo.SaveApplicationGraph(ctx, candidate, jobOffer, application); err != nil {
		t.Fatalf("SaveApplicationGraph: %v", err)
	}

	first := domain.ScreeningAnalysis{ID: domain.NewAnalysisID(), ApplicationID: application.ID, FitScore: 50, CompletedAt: time.Now().UTC(), Status: domain.AnalysisStatusCompleted}
	if err := analysisRepo.UpsertByApplication(ctx, first); err != nil {
		t.Fatalf("first UpsertByApplication: %v", err)
	}
	second := first
	second.ID = domain.NewAnalysisID()
	second.FitScore = 80
	if err := analysisRepo.UpsertByApplication(ctx, second); err != nil {
		t.Fatalf("second UpsertByApplication: %v", err)
	}

	got, err := analysisRepo.GetByApplication(ctx, application.ID)
	if err != nil {
		t.Fatalf("GetByApplication: %v", err)
	}
	if got == nil || got.FitScore != 80 {
		t.Errorf("want the second upsert to win with FitScore=80, got %+v", got)
	}
}

func TestOutboxStore_SaveListMarkPublished(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	store := pool.Outbox()

	id, err := store.SavePending(ctx, "JobOfferApplied", []byte(`{"kind":"JobOfferApplied"}`))
	if err != nil {
		t.Fatalf("SavePending: %v", err)
	}

	pending, err := store.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	found := false
	for _, r := range pending {
		if r.ID == id {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the saved row to appear in ListPending")
	}

	if err := store.MarkPublished(ctx, id); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	pending, err = store.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending after publish: %v", err)
	}
	for _, r := range pending {
		if r.ID == id {
			t.Fatal("expected the published row to no longer be pending")
		}
	}
}
