package dialog_test

import (
	"testing"
	"time"

	"github.com/MrWong99/screeningd/internal/call"
	"github.com/MrWong99/screeningd/internal/dialog"
	dmock "github.com/MrWong99/screeningd/internal/dialog/mock"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/domain/mock"
)

func testConfig() dialog.Config {
	return dialog.Config{
		ReadyBaseTimeout:        50 * time.Millisecond,
		ReadyMaxTimeout:         100 * time.Millisecond,
		AnswerTimeout:           50 * time.Millisecond,
		SilenceRetries:          1,
		FragmentMergeWindow:     20 * time.Millisecond,
		EchoSimilarityThreshold: 0.82,
	}
}

func newTestEngine(calls *call.Service) *dialog.Engine {
	return dialog.New(calls, dialog.NewEmma(nil), nil, testConfig())
}

func TestEngine_HappyPath(t *testing.T) {
	t.Parallel()

	repo := mock.NewCallRepository()
	calls := call.New(repo, &mock.EventPublisher{})
	appID := domain.NewApplicationID()
	calls.SetPromptForApplication(appID, call.Prompt{
		PreparedQuestions: []string{"Tell me about your background."},
		RoleContext:       "Screening call.",
	})

	engine := newTestEngine(calls)
	transport := dmock.New()

	go func() {
		drainControl(t, transport) // emma_speaking (greeting)
		drainText(t, transport)    // greeting text
		drainControl(t, transport) // listening

		transport.SendText("Ready")

		drainControl(t, transport) // emma_speaking (question)
		drainText(t, transport)    // question text
		drainControl(t, transport) // listening

		transport.SendText("I have five years of Python experience.")

		drainControl(t, transport) // emma_speaking (goodbye)
		drainText(t, transport)    // goodbye text
		drainControl(t, transport) // call_ended
	}()

	if err := engine.Run(t.Context(), transport, appID.String()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if calls.IsApplicationInCall(appID) {
		t.Error("application should no longer be registered as active after Run returns")
	}

	screeningCall := repo.Calls[mustOnlyCallID(t, repo)]
	segments := screeningCall.Transcript
	var emmaCount, candidateCount int
	for _, seg := range segments {
		switch seg.Speaker {
		case domain.SpeakerEmma:
			emmaCount++
		case domain.SpeakerCandidate:
			candidateCount++
		}
	}
	if emmaCount < 1 || candidateCount != 1 {
		t.Errorf("unexpected transcript shape: emma=%d candidate=%d, full=%+v", emmaCount, candidateCount, segments)
	}
}

func TestEngine_DuplicateActiveCallClosesWithCode4409(t *testing.T) {
	t.Parallel()

	repo := mock.NewCallRepository()
	calls := call.New(repo, &mock.EventPublisher{})
	appID := domain.NewApplicationID()
	calls.RegisterActiveCall(appID, domain.NewCallID())

	engine := newTestEngine(calls)
	transport := dmock.New()

	if err := engine.Run(t.Context(), transport, appID.String()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if transport.CloseCode != dialog.CloseDuplicateActiveCall {
		t.Errorf("CloseCode = %d, want %d", transport.CloseCode, dialog.CloseDuplicateActiveCall)
	}
}

func TestEngine_InvalidApplicationIDClosesWithCode4000(t *testing.T) {
	t.Parallel()

	calls := call.New(mock.NewCallRepository(), &mock.EventPublisher{})
	engine := newTestEngine(calls)
	transport := dmock.New()

	if err := engine.Run(t.Context(), transport, "not-a-uuid"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if transport.CloseCode != dialog.CloseInvalidApplicationID {
		t.Errorf("CloseCode = %d, want %d", transport.CloseCode, dialog.CloseInvalidApplicationID)
	}
}

func TestEngine_EchoIsIgnoredRealAnswerRecorded(t *testing.T) {
	t.Parallel()

	repo := mock.NewCallRepository()
	calls := call.New(repo, &mock.EventPublisher{})
	appID := domain.NewApplicationID()
	calls.SetPromptForApplication(appID, call.Prompt{
		PreparedQuestions: []string{"Tell me about your background."},
		RoleContext:       "Screening call.",
	})

	engine := newTestEngine(calls)
	transport := dmock.New()

	var greetingText string
	go func() {
		drainControl(t, transport)
		greetingText = drainText(t, transport)
		drainControl(t, transport)

		transport.SendText(greetingText) // echo of Emma's own greeting

		drainControl(t, transport) // emma_speaking (question), once the echo is discarded
		drainText(t, transport)
		drainControl(t, transport)

		transport.SendText("I like communication and teamwork.")

		drainControl(t, transport)
		drainText(t, transport)
		drainControl(t, transport)
	}()

	if err := engine.Run(t.Context(), transport, appID.String()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	screeningCall := repo.Calls[mustOnlyCallID(t, repo)]
	var candidateSegments []string
	for _, seg := range screeningCall.Transcript {
		if seg.Speaker == domain.SpeakerCandidate {
			candidateSegments = append(candidateSegments, seg.Text)
		}
	}
	if len(candidateSegments) != 1 || candidateSegments[0] != "I like communication and teamwork." {
		t.Errorf("expected only the real answer recorded, got %v", candidateSegments)
	}
}

func TestEngine_NoResponseEndsLoopAndRecordsSentinel(t *testing.T) {
	t.Parallel()

	repo := mock.NewCallRepository()
	calls := call.New(repo, &mock.EventPublisher{})
	appID := domain.NewApplicationID()
	calls.SetPromptForApplication(appID, call.Prompt{
		PreparedQuestions: []string{"Q1", "Q2"},
		RoleContext:       "Screening call.",
	})

	engine := newTestEngine(calls)
	transport := dmock.New()

	go func() {
		drainControl(t, transport)
		drainText(t, transport)
		drainControl(t, transport)

		transport.SendText("Ready")

		// Drain the first question's emma turn and silence retries, then
		// let the answer timeout + nudge(s) exhaust with no reply.
		for i := 0; i < 1+testConfig().SilenceRetries; i++ {
			drainControl(t, transport)
			drainText(t, transport)
			drainControl(t, transport)
		}

		drainControl(t, transport) // goodbye
		drainText(t, transport)
		drainControl(t, transport) // call_ended
	}()

	if err := engine.Run(t.Context(), transport, appID.String()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	screeningCall := repo.Calls[mustOnlyCallID(t, repo)]
	last := screeningCall.Transcript[len(screeningCall.Transcript)-2]
	if last.Speaker != domain.SpeakerCandidate || last.Text != "[no response]" {
		t.Errorf("expected [no response] sentinel before goodbye, got %+v", screeningCall.Transcript)
	}
}

func drainControl(t *testing.T, transport *dmock.Transport) {
	t.Helper()
	select {
	case msg := <-transport.Outbox:
		if msg.Type != dialog.OutgoingControl {
			t.Fatalf("expected control message, got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for control message")
	}
}

func drainText(t *testing.T, transport *dmock.Transport) string {
	t.Helper()
	select {
	case msg := <-transport.Outbox:
		if msg.Type != dialog.OutgoingText {
			t.Fatalf("expected text message, got %+v", msg)
		}
		return msg.Text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for text message")
		return ""
	}
}

func mustOnlyCallID(t *testing.T, repo *mock.CallRepository) domain.CallID {
	t.Helper()
	for id := range repo.Calls {
		return id
	}
	t.Fatal("no call persisted")
	return domain.CallID{}
}
