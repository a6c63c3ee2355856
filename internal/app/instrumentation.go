package app

import (
	"context"
	"time"

	"github.com/MrWong99/screeningd/internal/dialog"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/modelclient"
	"github.com/MrWong99/screeningd/internal/observe"
	"github.com/MrWong99/screeningd/internal/subscribers"
)

// The wrappers in this file record OTel metrics around the real
// model/upstream clients without requiring those client packages to know
// about observe.Metrics themselves.

type instrumentedEmbedder struct {
	delegate subscribers.Embedder
	metrics  *observe.Metrics
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.delegate.Embed(ctx, text)
	e.metrics.EmbeddingDuration.Record(ctx, time.Since(start).Seconds())
	return vec, err
}

type instrumentedChatCompleter struct {
	delegate dialog.ChatCompleter
	metrics  *observe.Metrics
}

func (c *instrumentedChatCompleter) Complete(ctx context.Context, systemPrompt string, history []modelclient.Message) (string, error) {
	start := time.Now()
	reply, err := c.delegate.Complete(ctx, systemPrompt, history)
	c.metrics.ChatDuration.Record(ctx, time.Since(start).Seconds())
	return reply, err
}

type instrumentedBiosPort struct {
	delegate domain.BiosPort
	metrics  *observe.Metrics
}

func (b *instrumentedBiosPort) GetBio(ctx context.Context, username string) (*domain.Candidate, error) {
	start := time.Now()
	candidate, err := b.delegate.GetBio(ctx, username)
	b.metrics.UpstreamDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		b.metrics.RecordUpstreamError(ctx, "bios")
	}
	return candidate, err
}

type instrumentedOpportunitiesPort struct {
	delegate domain.OpportunitiesPort
	metrics  *observe.Metrics
}

func (o *instrumentedOpportunitiesPort) GetOpportunity(ctx context.Context, externalID string) (*domain.JobOffer, error) {
	start := time.Now()
	offer, err := o.delegate.GetOpportunity(ctx, externalID)
	o.metrics.UpstreamDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		o.metrics.RecordUpstreamError(ctx, "opportunities")
	}
	return offer, err
}
