package subscribers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/screeningd/internal/call"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/retry"
)

const (
	callPromptRetries = 3
	callPromptBackoff = 500 * time.Millisecond
)

var defaultQuestions = []string{
	"Can you tell me about your relevant experience?",
	"What interests you about this role?",
	"How do your skills align with the responsibilities?",
}

// applicationReader is the narrow read surface CallPrompt needs: the
// application record itself plus its candidate and job offer.
type applicationReader interface {
	GetApplication(ctx context.Context, id domain.ApplicationID) (*domain.ScreeningApplication, error)
	candidateReader
	jobOfferReader
}

// CallPrompt prepares the interview question set and role context for a
// freshly applied application, grounded on
// applications/infrastructure/subscribers/call_prompt.py.
type CallPrompt struct {
	applications applicationReader
	calls        *call.Service
}

// NewCallPrompt constructs a CallPrompt handler.
func NewCallPrompt(applications applicationReader, calls *call.Service) *CallPrompt {
	return &CallPrompt{applications: applications, calls: calls}
}

// GenerateCallPrompt builds the prepared question list and role context
// for event.ApplicationID and stores it for the dialog engine to pick up
// once the candidate joins the call. A missing job offer, or retry
// exhaustion while looking one up, falls back to the generic default
// prompt rather than leaving the application without one.
func (c *CallPrompt) GenerateCallPrompt(ctx context.Context, event domain.Event) error {
	applied, ok := event.(domain.JobOfferApplied)
	if !ok {
		return nil
	}

	var jobOffer *domain.JobOffer
	var candidate *domain.Candidate
	err := retry.Do(ctx, callPromptRetries, callPromptBackoff, func(attempt int) error {
		app, err := c.applications.GetApplication(ctx, applied.ApplicationID)
		if err != nil {
			return err
		}
		if app == nil {
			return fmt.Errorf("application %s not found", applied.ApplicationID)
		}
		jobOffer, err = c.applications.GetJobOffer(ctx, applied.JobOfferID)
		if err != nil {
			return err
		}
		candidate, err = c.applications.GetCandidate(ctx, applied.CandidateID)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil || jobOffer == nil {
		slog.Warn("call prompt generation falling back to default", "application_id", applied.ApplicationID, "err", err)
		c.calls.SetPromptForApplication(applied.ApplicationID, call.Prompt{
			PreparedQuestions: defaultQuestions,
			RoleContext:       "Screening call.",
		})
		return nil
	}

	c.calls.SetPromptForApplication(applied.ApplicationID, call.Prompt{
		PreparedQuestions: buildQuestions(candidate),
		RoleContext:       buildRoleContext(jobOffer),
	})
	return nil
}

func buildRoleContext(j *domain.JobOffer) string {
	return fmt.Sprintf(
		"Objective: %s\nStrengths: %s\nResponsibilities: %s",
		j.Objective, strings.Join(capped(j.Strengths, 5), ", "), strings.Join(capped(j.Responsibilities, 5), ", "),
	)
}

func buildQuestions(candidate *domain.Candidate) []string {
	questions := append([]string(nil), defaultQuestions...)
	if candidate != nil && len(candidate.Skills) > 0 {
		skillsQuestion := fmt.Sprintf("Your profile mentions skills like %s. How have you applied them?", strings.Join(capped(candidate.Skills, 3), ", "))
		questions = append(questions[:1], append([]string{skillsQuestion}, questions[1:]...)...)
	}
	return questions
}

func capped(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}
