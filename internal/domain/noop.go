package domain

import "context"

// NullCandidateReader is the explicit null-object implementation of
// CandidateReader, used where a repository genuinely has no candidate
// capability (e.g. a minimal in-memory call repository in tests). It
// always reports "not found" rather than the caller needing to probe for
// method presence, replacing the source's duck-typed hasattr checks.
type NullCandidateReader struct{}

func (NullCandidateReader) GetCandidate(ctx context.Context, id CandidateID) (*Candidate, error) {
	return nil, nil
}

// NullJobOfferReader is the null-object JobOfferReader.
type NullJobOfferReader struct{}

func (NullJobOfferReader) GetJobOffer(ctx context.Context, id JobOfferID) (*JobOffer, error) {
	return nil, nil
}

// NullCallRepository is the null-object CallRepository, used when no call
// persistence has been wired. GetCall always reports "not found" so
// RunAnalysis falls through to the default-score path.
type NullCallRepository struct{}

func (NullCallRepository) GetCall(ctx context.Context, id CallID) (*ScreeningCall, error) {
	return nil, nil
}
func (NullCallRepository) SaveCall(ctx context.Context, call ScreeningCall) error { return nil }
func (NullCallRepository) UpdateTranscript(ctx context.Context, id CallID, transcript []TranscriptSegment) error {
	return nil
}
func (NullCallRepository) MarkCompleted(ctx context.Context, id CallID) error { return nil }
func (NullCallRepository) MarkFailed(ctx context.Context, id CallID) error    { return nil }
