// Package httpapi implements the HTTP surface for application creation
// and analysis retrieval, routed with net/http.ServeMux's Go 1.22+
// method-and-path patterns, matching the teacher's
// pkg/audio/webrtc/signaling.go routing style.
package httpapi

import (
	"net/http"

	"github.com/MrWong99/screeningd/internal/analysis"
	"github.com/MrWong99/screeningd/internal/application"
)

// Server serves the application-creation and analysis-retrieval HTTP
// endpoints.
type Server struct {
	applications   *application.Service
	analyses       *analysis.Service
	allowedOrigins []string
}

// New constructs a Server.
func New(applications *application.Service, analyses *analysis.Service, allowedOrigins []string) *Server {
	return &Server{applications: applications, analyses: analyses, allowedOrigins: allowedOrigins}
}

// Handler returns the routed, CORS-wrapped http.Handler:
//
//	POST /applications
//	GET  /applications/{application_id}/analysis
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /applications", s.handleCreateApplication)
	mux.HandleFunc("GET /applications/{application_id}/analysis", s.handleGetAnalysis)
	return s.withCORS(mux)
}
