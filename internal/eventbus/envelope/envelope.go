// Package envelope implements the canonical on-wire serialization of
// domain events: a self-describing {type, payload} JSON envelope.
// Encode/Decode round-trip for all three event variants (see
// envelope_test.go), grounded on
// original_source/src/screening/applications/infrastructure/adapters/event_codec.py.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
)

// Envelope is the wire shape: a type tag plus a JSON object payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type jobOfferAppliedPayload struct {
	OccurredAt    string `json:"occurred_at"`
	CandidateID   string `json:"candidate_id"`
	JobOfferID    string `json:"job_offer_id"`
	ApplicationID string `json:"application_id"`
}

type callFinishedPayload struct {
	OccurredAt    string `json:"occurred_at"`
	ApplicationID string `json:"application_id"`
	CallID        string `json:"call_id"`
}

type analysisCompletedPayload struct {
	OccurredAt    string `json:"occurred_at"`
	ApplicationID string `json:"application_id"`
	AnalysisID    string `json:"analysis_id"`
}

// Encode serializes a domain event to its JSON envelope bytes.
func Encode(event domain.Event) ([]byte, error) {
	env, err := ToEnvelope(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// ToEnvelope builds the {type, payload} structure for event without
// serializing it, for callers that need the envelope as a structured
// value rather than raw bytes (the outbox stores Encode's bytes).
func ToEnvelope(event domain.Event) (Envelope, error) {
	switch e := event.(type) {
	case domain.JobOfferApplied:
		payload, err := json.Marshal(jobOfferAppliedPayload{
			OccurredAt:    e.At.UTC().Format(time.RFC3339Nano),
			CandidateID:   e.CandidateID.String(),
			JobOfferID:    e.JobOfferID.String(),
			ApplicationID: e.ApplicationID.String(),
		})
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Type: string(domain.EventJobOfferApplied), Payload: payload}, nil
	case domain.CallFinished:
		payload, err := json.Marshal(callFinishedPayload{
			OccurredAt:    e.At.UTC().Format(time.RFC3339Nano),
			ApplicationID: e.ApplicationID.String(),
			CallID:        e.CallID.String(),
		})
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Type: string(domain.EventCallFinished), Payload: payload}, nil
	case domain.AnalysisCompleted:
		payload, err := json.Marshal(analysisCompletedPayload{
			OccurredAt:    e.At.UTC().Format(time.RFC3339Nano),
			ApplicationID: e.ApplicationID.String(),
			AnalysisID:    e.AnalysisID.String(),
		})
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Type: string(domain.EventAnalysisCompleted), Payload: payload}, nil
	default:
		return Envelope{}, fmt.Errorf("envelope: unsupported event type %T", event)
	}
}

// Decode parses body into a domain.Event. Unknown or malformed types
// return an error wrapping apperr.ErrInvalidEnvelope.
func Decode(body []byte) (domain.Event, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: decode outer envelope", err)
	}
	return FromEnvelope(env)
}

// FromEnvelope reconstructs a domain.Event from an already-parsed
// Envelope value.
func FromEnvelope(env Envelope) (domain.Event, error) {
	switch env.Type {
	case string(domain.EventJobOfferApplied):
		var p jobOfferAppliedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: decode JobOfferApplied payload", err)
		}
		at, err := time.Parse(time.RFC3339Nano, p.OccurredAt)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse occurred_at", err)
		}
		candidateID, err := domain.ParseCandidateID(p.CandidateID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse candidate_id", err)
		}
		jobOfferID, err := domain.ParseJobOfferID(p.JobOfferID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse job_offer_id", err)
		}
		applicationID, err := domain.ParseApplicationID(p.ApplicationID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse application_id", err)
		}
		return domain.JobOfferApplied{
			CandidateID:   candidateID,
			JobOfferID:    jobOfferID,
			ApplicationID: applicationID,
			At:            at,
		}, nil

	case string(domain.EventCallFinished):
		var p callFinishedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: decode CallFinished payload", err)
		}
		at, err := time.Parse(time.RFC3339Nano, p.OccurredAt)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse occurred_at", err)
		}
		applicationID, err := domain.ParseApplicationID(p.ApplicationID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse application_id", err)
		}
		callID, err := domain.ParseCallID(p.CallID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse call_id", err)
		}
		return domain.CallFinished{ApplicationID: applicationID, CallID: callID, At: at}, nil

	case string(domain.EventAnalysisCompleted):
		var p analysisCompletedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: decode AnalysisCompleted payload", err)
		}
		at, err := time.Parse(time.RFC3339Nano, p.OccurredAt)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse occurred_at", err)
		}
		applicationID, err := domain.ParseApplicationID(p.ApplicationID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse application_id", err)
		}
		analysisID, err := domain.ParseAnalysisID(p.AnalysisID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidEnvelope, "envelope: parse analysis_id", err)
		}
		return domain.AnalysisCompleted{ApplicationID: applicationID, AnalysisID: analysisID, At: at}, nil

	default:
		return nil, fmt.Errorf("envelope: unknown event type %q: %w", env.Type, apperr.ErrInvalidEnvelope)
	}
}
