package upstream_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/screeningd/internal/upstream"
)

func TestOpportunitiesClient_GetOpportunity(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"objective": "Build the screening platform",
			"details": [
				{"code": "STRENGTHS", "content": "Go\n•Kubernetes\n·PostgreSQL"},
				{"code": "RESPONSIBILITIES", "content": "Own the dialog engine\nOn-call rotation"}
			]
		}`))
	}))
	defer srv.Close()

	client := upstream.NewOpportunitiesClient(srv.URL, 2*time.Second, 1)
	offer, err := client.GetOpportunity(t.Context(), "job-123")
	if err != nil {
		t.Fatalf("GetOpportunity: %v", err)
	}
	if offer.Objective != "Build the screening platform" {
		t.Errorf("Objective: got %q", offer.Objective)
	}
	if len(offer.Strengths) != 3 {
		t.Errorf("Strengths: got %v", offer.Strengths)
	}
	if len(offer.Responsibilities) != 2 {
		t.Errorf("Responsibilities: got %v", offer.Responsibilities)
	}
}

func TestOpportunitiesClient_GetOpportunity_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := upstream.NewOpportunitiesClient(srv.URL, 2*time.Second, 1)
	offer, err := client.GetOpportunity(t.Context(), "missing")
	if err != nil {
		t.Fatalf("GetOpportunity: %v", err)
	}
	if offer != nil {
		t.Errorf("expected nil offer for 404, got %+v", offer)
	}
}

func TestOpportunitiesClient_GetOpportunity_StrengthsFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"objective": "Fallback", "strengths": [{"name": "Leadership"}]}`))
	}))
	defer srv.Close()

	client := upstream.NewOpportunitiesClient(srv.URL, 2*time.Second, 1)
	offer, err := client.GetOpportunity(t.Context(), "fallback")
	if err != nil {
		t.Fatalf("GetOpportunity: %v", err)
	}
	if len(offer.Strengths) != 1 || offer.Strengths[0] != "Leadership" {
		t.Errorf("Strengths: got %v", offer.Strengths)
	}
}
