package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
)

type createApplicationRequest struct {
	Username   string `json:"username"`
	JobOfferID string `json:"job_offer_id"`
}

type createApplicationResponse struct {
	ApplicationID string `json:"application_id"`
}

// handleCreateApplication handles POST /applications. Status codes
// follow spec.md §6: 201 on success, 400 on missing fields, 404 on
// candidate/offer not found, 502 on any other upstream failure, 503 on
// broker unavailability.
func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.applications.CreateApplication(r.Context(), req.Username, req.JobOfferID)
	if err != nil {
		status := createApplicationErrorStatus(err)
		slog.Error("create application failed", "username", req.Username, "job_offer_id", req.JobOfferID, "err", err)
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, createApplicationResponse{ApplicationID: result.ApplicationID.String()})
}

func createApplicationErrorStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrBrokerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type analysisResponse struct {
	FitScore int      `json:"fit_score"`
	Skills   []string `json:"skills"`
	Failed   bool     `json:"failed,omitempty"`
}

// handleGetAnalysis handles GET /applications/{application_id}/analysis.
// 200 with the scored result once computed; 202 with an empty body
// while the application exists but no analysis has completed yet; 404
// when the id is malformed or unknown.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	rawID := r.PathValue("application_id")
	applicationID, err := domain.ParseApplicationID(rawID)
	if err != nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	result, err := s.analyses.GetAnalysisForApplication(r.Context(), applicationID)
	if err != nil {
		slog.Error("get analysis failed", "application_id", applicationID, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if !result.FoundApplication {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}
	if result.Analysis == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	writeJSON(w, http.StatusOK, analysisResponse{
		FitScore: result.Analysis.FitScore,
		Skills:   result.Analysis.Skills,
		Failed:   result.Analysis.Status == domain.AnalysisStatusFailed,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: message})
}
