package domain

import "time"

// EventKind tags the variant of a domain event for dispatch and envelope
// encoding. Using an explicit tagged union (rather than runtime type
// switches alone) lets subscribers register against a kind without
// importing every concrete event type.
type EventKind string

const (
	EventJobOfferApplied  EventKind = "JobOfferApplied"
	EventCallFinished     EventKind = "CallFinished"
	EventAnalysisCompleted EventKind = "AnalysisCompleted"
)

// Event is the common interface satisfied by every domain event.
type Event interface {
	Kind() EventKind
	OccurredAt() time.Time
}

// JobOfferApplied is published once a ScreeningApplication (and its
// backing Candidate/JobOffer graph) has been durably saved.
type JobOfferApplied struct {
	CandidateID   CandidateID
	JobOfferID    JobOfferID
	ApplicationID ApplicationID
	At            time.Time
}

func (e JobOfferApplied) Kind() EventKind      { return EventJobOfferApplied }
func (e JobOfferApplied) OccurredAt() time.Time { return e.At }

// CallFinished is published once a ScreeningCall's transcript has been
// persisted and its status set to completed.
type CallFinished struct {
	ApplicationID ApplicationID
	CallID        CallID
	At            time.Time
}

func (e CallFinished) Kind() EventKind      { return EventCallFinished }
func (e CallFinished) OccurredAt() time.Time { return e.At }

// AnalysisCompleted is published once a ScreeningAnalysis has been
// computed and persisted successfully. It is never published when an
// analysis is persisted with AnalysisStatusFailed.
type AnalysisCompleted struct {
	ApplicationID ApplicationID
	AnalysisID    AnalysisID
	At            time.Time
}

func (e AnalysisCompleted) Kind() EventKind      { return EventAnalysisCompleted }
func (e AnalysisCompleted) OccurredAt() time.Time { return e.At }
