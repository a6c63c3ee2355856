// Package domain holds the screening bounded context's entity model: typed
// opaque identifiers, domain records, and the capability-interface ports
// other packages depend on to read and write them.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ApplicationID identifies a ScreeningApplication. It wraps a UUID but is a
// distinct Go type from CandidateID, JobOfferID, CallID, and AnalysisID so
// the compiler rejects accidental cross-kind assignment.
type ApplicationID struct{ v uuid.UUID }

// NewApplicationID generates a fresh random ApplicationID.
func NewApplicationID() ApplicationID { return ApplicationID{v: uuid.New()} }

// ParseApplicationID parses s as a UUID and wraps it. Returns an error if s
// is not a valid UUID string.
func ParseApplicationID(s string) (ApplicationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ApplicationID{}, fmt.Errorf("domain: invalid application id %q: %w", s, err)
	}
	return ApplicationID{v: id}, nil
}

func (id ApplicationID) String() string   { return id.v.String() }
func (id ApplicationID) IsZero() bool     { return id.v == uuid.Nil }
func (id ApplicationID) Equal(o ApplicationID) bool { return id.v == o.v }

// CandidateID identifies a Candidate.
type CandidateID struct{ v uuid.UUID }

func NewCandidateID() CandidateID { return CandidateID{v: uuid.New()} }

func ParseCandidateID(s string) (CandidateID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CandidateID{}, fmt.Errorf("domain: invalid candidate id %q: %w", s, err)
	}
	return CandidateID{v: id}, nil
}

func (id CandidateID) String() string       { return id.v.String() }
func (id CandidateID) IsZero() bool         { return id.v == uuid.Nil }
func (id CandidateID) Equal(o CandidateID) bool { return id.v == o.v }

// JobOfferID identifies a JobOffer.
type JobOfferID struct{ v uuid.UUID }

func NewJobOfferID() JobOfferID { return JobOfferID{v: uuid.New()} }

func ParseJobOfferID(s string) (JobOfferID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return JobOfferID{}, fmt.Errorf("domain: invalid job offer id %q: %w", s, err)
	}
	return JobOfferID{v: id}, nil
}

func (id JobOfferID) String() string      { return id.v.String() }
func (id JobOfferID) IsZero() bool        { return id.v == uuid.Nil }
func (id JobOfferID) Equal(o JobOfferID) bool { return id.v == o.v }

// CallID identifies a ScreeningCall.
type CallID struct{ v uuid.UUID }

func NewCallID() CallID { return CallID{v: uuid.New()} }

func ParseCallID(s string) (CallID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CallID{}, fmt.Errorf("domain: invalid call id %q: %w", s, err)
	}
	return CallID{v: id}, nil
}

func (id CallID) String() string   { return id.v.String() }
func (id CallID) IsZero() bool     { return id.v == uuid.Nil }
func (id CallID) Equal(o CallID) bool { return id.v == o.v }

// AnalysisID identifies a ScreeningAnalysis.
type AnalysisID struct{ v uuid.UUID }

func NewAnalysisID() AnalysisID { return AnalysisID{v: uuid.New()} }

func ParseAnalysisID(s string) (AnalysisID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AnalysisID{}, fmt.Errorf("domain: invalid analysis id %q: %w", s, err)
	}
	return AnalysisID{v: id}, nil
}

func (id AnalysisID) String() string       { return id.v.String() }
func (id AnalysisID) IsZero() bool         { return id.v == uuid.Nil }
func (id AnalysisID) Equal(o AnalysisID) bool { return id.v == o.v }
