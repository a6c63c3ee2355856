// Package subscribers wires the event bus to the background work
// JobOfferApplied and CallFinished trigger: embedding generation,
// call-prompt preparation, and fit-score analysis.
package subscribers

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/retry"
)

const (
	embeddingRetries = 3
	embeddingBackoff = time.Second
)

// Embedder computes an embedding vector for arbitrary text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// candidateReader is the narrow read surface the candidate-embedding
// subscriber needs.
type candidateReader interface {
	GetCandidate(ctx context.Context, id domain.CandidateID) (*domain.Candidate, error)
}

// jobOfferReader is the narrow read surface the job-offer-embedding
// subscriber needs.
type jobOfferReader interface {
	GetJobOffer(ctx context.Context, id domain.JobOfferID) (*domain.JobOffer, error)
}

// Embeddings holds the handlers that turn a JobOfferApplied event into
// stored candidate/job-offer embedding vectors, grounded on
// applications/infrastructure/subscribers/embeddings.py but backed by a
// real EmbedClient instead of a deterministic hash stub.
type Embeddings struct {
	candidates candidateReader
	jobOffers  jobOfferReader
	embedder   Embedder
	store      domain.EmbeddingStore
}

// NewEmbeddings constructs an Embeddings handler set.
func NewEmbeddings(candidates candidateReader, jobOffers jobOfferReader, embedder Embedder, store domain.EmbeddingStore) *Embeddings {
	return &Embeddings{candidates: candidates, jobOffers: jobOffers, embedder: embedder, store: store}
}

// GenerateCandidateEmbeddings computes and stores the candidate's
// embedding vector from their full name, skills, and job titles. Failure
// after embeddingRetries attempts is logged and dropped; the candidate
// simply falls back to the rule-based scoring path.
func (e *Embeddings) GenerateCandidateEmbeddings(ctx context.Context, event domain.Event) error {
	applied, ok := event.(domain.JobOfferApplied)
	if !ok {
		return nil
	}
	candidate, err := e.candidates.GetCandidate(ctx, applied.CandidateID)
	if err != nil || candidate == nil {
		return nil
	}

	text := candidateEmbeddingText(candidate)
	var embedding []float32
	err = retry.Do(ctx, embeddingRetries, embeddingBackoff, func(attempt int) error {
		var embedErr error
		embedding, embedErr = e.embedder.Embed(ctx, text)
		if embedErr != nil {
			slog.Warn("candidate embedding attempt failed", "candidate_id", candidate.ID, "attempt", attempt+1, "err", embedErr)
		}
		return embedErr
	})
	if err != nil {
		slog.Warn("candidate embedding dropped after retries exhausted", "event", applied, "err", err)
		return nil
	}
	if err := e.store.SaveCandidateEmbedding(ctx, candidate.ID, embedding); err != nil {
		slog.Warn("saving candidate embedding failed", "candidate_id", candidate.ID, "err", err)
	}
	return nil
}

// GenerateJobOfferEmbeddings computes and stores the job offer's
// embedding vector from its objective, strengths, and responsibilities.
func (e *Embeddings) GenerateJobOfferEmbeddings(ctx context.Context, event domain.Event) error {
	applied, ok := event.(domain.JobOfferApplied)
	if !ok {
		return nil
	}
	jobOffer, err := e.jobOffers.GetJobOffer(ctx, applied.JobOfferID)
	if err != nil || jobOffer == nil {
		return nil
	}

	text := jobOfferEmbeddingText(jobOffer)
	var embedding []float32
	err = retry.Do(ctx, embeddingRetries, embeddingBackoff, func(attempt int) error {
		var embedErr error
		embedding, embedErr = e.embedder.Embed(ctx, text)
		if embedErr != nil {
			slog.Warn("job offer embedding attempt failed", "job_offer_id", jobOffer.ID, "attempt", attempt+1, "err", embedErr)
		}
		return embedErr
	})
	if err != nil {
		slog.Warn("job offer embedding dropped after retries exhausted", "event", applied, "err", err)
		return nil
	}
	if err := e.store.SaveJobOfferEmbedding(ctx, jobOffer.ID, embedding); err != nil {
		slog.Warn("saving job offer embedding failed", "job_offer_id", jobOffer.ID, "err", err)
	}
	return nil
}

func candidateEmbeddingText(c *domain.Candidate) string {
	text := c.FullName + " " + joinStrings(c.Skills)
	jobs := c.Jobs
	if len(jobs) > 5 {
		jobs = jobs[:5]
	}
	for _, j := range jobs {
		text += " " + j.Title + " " + j.Organization
	}
	return text
}

func jobOfferEmbeddingText(j *domain.JobOffer) string {
	return j.Objective + " " + joinStrings(j.Strengths) + " " + joinStrings(j.Responsibilities)
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
