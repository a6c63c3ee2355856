package wsapi

import (
	"log/slog"
	"net/http"

	"github.com/MrWong99/screeningd/internal/dialog"
	"github.com/MrWong99/screeningd/internal/observe"
)

// Handler serves /ws/call?application_id=<uuid>, accepting a WebSocket
// connection and running the dialog engine over it until the session
// ends.
type Handler struct {
	engine         *dialog.Engine
	allowedOrigins []string
	metrics        *observe.Metrics
}

// NewHandler constructs a Handler. metrics may be nil, in which case
// active-call tracking is skipped.
func NewHandler(engine *dialog.Engine, allowedOrigins []string, metrics *observe.Metrics) *Handler {
	return &Handler{engine: engine, allowedOrigins: allowedOrigins, metrics: metrics}
}

// ServeHTTP accepts the WebSocket upgrade and blocks for the lifetime of
// the interview session, one goroutine per connection (matching
// SPEC_FULL.md §5's one-goroutine-per-dialog-session model).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	applicationID := r.URL.Query().Get("application_id")

	transport, err := Accept(w, r, h.allowedOrigins)
	if err != nil {
		slog.Error("wsapi: upgrade failed", "err", err)
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}

	if h.metrics != nil {
		h.metrics.ActiveCalls.Add(r.Context(), 1)
		defer h.metrics.ActiveCalls.Add(r.Context(), -1)
	}

	if err := h.engine.Run(r.Context(), transport, applicationID); err != nil {
		slog.Error("wsapi: dialog session ended with error", "application_id", applicationID, "err", err)
	}
}
