package application_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/application"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/domain/mock"
	"github.com/MrWong99/screeningd/internal/workerpool"
)

func newService(t *testing.T) (*application.Service, *mock.ApplicationRepository, *mock.BiosPort, *mock.OpportunitiesPort, *mock.EventPublisher) {
	t.Helper()
	repo := mock.NewApplicationRepository()
	bios := &mock.BiosPort{Candidate: &domain.Candidate{Username: "jdoe", FullName: "Jane Doe", Skills: []string{"Go"}}}
	opportunities := &mock.OpportunitiesPort{JobOffer: &domain.JobOffer{ExternalID: "job-1", Objective: "Build things"}}
	publisher := &mock.EventPublisher{}
	svc := application.New(bios, opportunities, repo, publisher, workerpool.New(4))
	return svc, repo, bios, opportunities, publisher
}

func TestCreateApplication_NewApplication(t *testing.T) {
	t.Parallel()

	svc, _, _, _, publisher := newService(t)

	result, err := svc.CreateApplication(t.Context(), "jdoe", "job-1")
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	if !result.Created {
		t.Error("expected Created=true for a fresh pair")
	}
	if result.ApplicationID.IsZero() {
		t.Error("expected a non-zero application id")
	}
	if len(publisher.PublishedEvents()) != 1 {
		t.Fatalf("want 1 published event, got %d", len(publisher.PublishedEvents()))
	}
	event, ok := publisher.PublishedEvents()[0].(domain.JobOfferApplied)
	if !ok {
		t.Fatalf("published event has wrong type: %T", publisher.PublishedEvents()[0])
	}
	if event.ApplicationID != result.ApplicationID {
		t.Error("published event's application id does not match the returned id")
	}
}

func TestCreateApplication_IdempotentForSamePair(t *testing.T) {
	t.Parallel()

	svc, _, _, _, publisher := newService(t)

	first, err := svc.CreateApplication(t.Context(), "jdoe", "job-1")
	if err != nil {
		t.Fatalf("first CreateApplication: %v", err)
	}

	second, err := svc.CreateApplication(t.Context(), "JDoe", "job-1")
	if err != nil {
		t.Fatalf("second CreateApplication: %v", err)
	}
	if second.Created {
		t.Error("expected Created=false on the second call for the same pair")
	}
	if second.ApplicationID != first.ApplicationID {
		t.Error("expected the same application id to be returned")
	}
	if len(publisher.PublishedEvents()) != 1 {
		t.Errorf("want exactly 1 published event across both calls, got %d", len(publisher.PublishedEvents()))
	}
}

func TestCreateApplication_EmptyArguments(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newService(t)

	_, err := svc.CreateApplication(t.Context(), "  ", "job-1")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("want ErrInvalidArgument, got %v", err)
	}
}

func TestCreateApplication_CandidateNotFound(t *testing.T) {
	t.Parallel()

	svc, _, bios, _, _ := newService(t)
	bios.Candidate = nil

	_, err := svc.CreateApplication(t.Context(), "ghost", "job-1")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestCreateApplication_JobOfferNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _, opportunities, _ := newService(t)
	opportunities.JobOffer = nil

	_, err := svc.CreateApplication(t.Context(), "jdoe", "missing-job")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestCreateApplication_PublishFailureSurfacesAsBrokerUnavailable(t *testing.T) {
	t.Parallel()

	svc, _, _, _, publisher := newService(t)
	publisher.Err = errors.New("amqp: connection refused")

	_, err := svc.CreateApplication(t.Context(), "jdoe", "job-1")
	if !errors.Is(err, apperr.ErrBrokerUnavailable) {
		t.Errorf("want ErrBrokerUnavailable, got %v", err)
	}
}

func TestCreateApplication_ConcurrentSamePairCreatesOnce(t *testing.T) {
	t.Parallel()

	svc, _, _, _, publisher := newService(t)

	const goroutines = 10
	results := make([]application.Result, goroutines)
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.CreateApplication(t.Context(), "jdoe", "job-1")
		}()
	}
	wg.Wait()

	created := 0
	var firstID domain.ApplicationID
	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
		if results[i].Created {
			created++
		}
		if firstID.IsZero() {
			firstID = results[i].ApplicationID
		} else if results[i].ApplicationID != firstID {
			t.Errorf("goroutine %d returned a different application id", i)
		}
	}
	if created != 1 {
		t.Errorf("want exactly 1 goroutine to report Created=true, got %d", created)
	}
	if len(publisher.PublishedEvents()) != 1 {
		t.Errorf("want exactly 1 published event, got %d", len(publisher.PublishedEvents()))
	}
}

func TestCreateApplication_TrimsAndNormalizesUsername(t *testing.T) {
	t.Parallel()

	svc, repo, _, _, _ := newService(t)

	result, err := svc.CreateApplication(t.Context(), "  JDoe  ", "job-1")
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	existing, err := repo.FindByUsernameAndJobOffer(t.Context(), strings.ToLower("jdoe"), "job-1")
	if err != nil {
		t.Fatalf("FindByUsernameAndJobOffer: %v", err)
	}
	if existing == nil || existing.ID != result.ApplicationID {
		t.Error("expected the saved application to be findable by normalized username")
	}
}
