package domain

import "time"

// PriorJob is a single entry in a Candidate's employment history.
type PriorJob struct {
	Title        string
	Organization string
}

// Candidate is the screening subject's profile, as fetched from the
// upstream bios lookup and merged into the local graph on first
// application.
type Candidate struct {
	ID       CandidateID
	Username string
	FullName string
	Skills   []string
	Jobs     []PriorJob
}

// JobOffer is the role being screened for, as fetched from the upstream
// opportunities lookup.
type JobOffer struct {
	ID               JobOfferID
	ExternalID       string
	Objective        string
	Strengths        []string
	Responsibilities []string
}

// ScreeningApplication ties a Candidate to a JobOffer. At most one exists
// per (normalized-lowercase username, external job id).
type ScreeningApplication struct {
	ID          ApplicationID
	CandidateID CandidateID
	JobOfferID  JobOfferID
	CreatedAt   time.Time
}

// CallStatus is the lifecycle state of a ScreeningCall.
type CallStatus string

const (
	CallInProgress CallStatus = "in_progress"
	CallCompleted  CallStatus = "completed"
	CallFailed     CallStatus = "failed"
)

// TranscriptSegment is one utterance in a call transcript.
type TranscriptSegment struct {
	Speaker   string // "emma" | "candidate"
	Text      string
	Timestamp float64 // monotonic seconds since call start
}

const (
	SpeakerEmma      = "emma"
	SpeakerCandidate = "candidate"
)

// ScreeningCall is one interview session. At most one call with status
// in_progress may exist per application id, process-wide.
type ScreeningCall struct {
	ID            CallID
	ApplicationID ApplicationID
	Status        CallStatus
	StartedAt     time.Time
	EndedAt       *time.Time
	Transcript    []TranscriptSegment
}

// AnalysisStatus distinguishes a successfully scored analysis from one
// persisted after retries were exhausted.
type AnalysisStatus string

const (
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// ScreeningAnalysis is the fit-score result for one application. At most
// one exists per application id; writes are upserts.
type ScreeningAnalysis struct {
	ID            AnalysisID
	ApplicationID ApplicationID
	FitScore      int // [0, 100]
	Skills        []string
	CompletedAt   time.Time
	Status        AnalysisStatus
}
