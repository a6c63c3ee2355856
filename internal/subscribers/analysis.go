package subscribers

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/screeningd/internal/analysis"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/retry"
)

const (
	analysisRetries = 3
	analysisBackoff = time.Second
)

// Analysis runs the fit-score analysis once a call finishes, grounded on
// calls/infrastructure/subscribers/call_finished.py's retry-then-persist-
// failed pattern (the synchronous in-process bus here makes the
// async-vs-sync-thread dispatch that subscriber handles unnecessary).
type Analysis struct {
	service *analysis.Service
}

// NewAnalysis constructs an Analysis handler.
func NewAnalysis(service *analysis.Service) *Analysis {
	return &Analysis{service: service}
}

// RunAnalysis scores the finished call, retrying transient failures
// before persisting a terminal failed analysis so GET keeps working.
func (a *Analysis) RunAnalysis(ctx context.Context, event domain.Event) error {
	finished, ok := event.(domain.CallFinished)
	if !ok {
		return nil
	}

	err := retry.Do(ctx, analysisRetries, analysisBackoff, func(attempt int) error {
		runErr := a.service.RunAnalysis(ctx, finished.ApplicationID, finished.CallID)
		if runErr != nil {
			slog.Warn("analysis attempt failed", "application_id", finished.ApplicationID, "attempt", attempt+1, "err", runErr)
		}
		return runErr
	})
	if err == nil {
		return nil
	}

	slog.Error("analysis failed after retries exhausted; persisting failed state", "application_id", finished.ApplicationID, "err", err)
	if persistErr := a.service.PersistAnalysisFailed(ctx, finished.ApplicationID); persistErr != nil {
		slog.Error("persisting failed analysis state also failed", "application_id", finished.ApplicationID, "err", persistErr)
	}
	return nil
}
