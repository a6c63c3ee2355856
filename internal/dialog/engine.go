package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/call"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/transcriber"
)

// Config bounds the dialog engine's turn-taking timing (SPEC_FULL.md
// §4.2, loaded from config.DialogConfig by the composition root).
type Config struct {
	ReadyBaseTimeout        time.Duration
	ReadyMaxTimeout         time.Duration
	AnswerTimeout           time.Duration
	SilenceRetries          int
	FragmentMergeWindow     time.Duration
	EchoSimilarityThreshold float64
}

const defaultNudgeText = "Are you still there? Please go ahead whenever you're ready."

// Engine runs the interview dialog state machine. One Engine is shared
// across sessions; it holds no per-session state itself — every field
// is read-only after construction, and each call to Run drives its own
// session to completion on the calling goroutine.
type Engine struct {
	calls       *call.Service
	interviewer Interviewer
	transcriber transcriber.Transcriber
	cfg         Config
}

// New constructs an Engine. transcriber may be nil, in which case audio
// input is accumulated but never transcribed (the turn simply times
// out as if no input arrived).
func New(calls *call.Service, interviewer Interviewer, transcriber transcriber.Transcriber, cfg Config) *Engine {
	return &Engine{calls: calls, interviewer: interviewer, transcriber: transcriber, cfg: cfg}
}

// session holds the mutable state of one interview dialog from
// handshake to finalization. It is driven entirely by the goroutine
// that called Engine.Run and is never shared, matching SPEC_FULL.md §5's
// single-mutator invariant.
type session struct {
	engine      *Engine
	transport   Transport
	transcriber transcriber.Transcriber
	cfg         Config

	applicationID domain.ApplicationID
	callID        domain.CallID
	prompt        call.Prompt

	startedAt    time.Time
	transcript   []domain.TranscriptSegment
	lastEmmaText string
}

// Run drives one interview dialog session end to end: handshake,
// greeting, the Q&A loop, goodbye, and finalization. rawApplicationID is
// the unparsed application_id query value from the transport adapter.
//
// Run calls transport.Close on every exit path except a disconnect (the
// client closed the connection, or ctx was cancelled). A session that
// fails with any other error, including a recovered panic, is closed
// with 1011; when that error came from the final normal close itself,
// this is a second close attempt. call.Service.EndCall is invoked
// exactly once for every application_id that reaches StartCall,
// regardless of how the session ends.
func (e *Engine) Run(ctx context.Context, transport Transport, rawApplicationID string) error {
	applicationID, err := domain.ParseApplicationID(rawApplicationID)
	if err != nil {
		return transport.Close(CloseInvalidApplicationID, "Invalid application_id")
	}

	screeningCall, err := e.calls.StartCall(ctx, applicationID)
	if err != nil {
		if errors.Is(err, apperr.ErrCallAlreadyActive) {
			return transport.Close(CloseDuplicateActiveCall, "Call already active for this application")
		}
		slog.Error("dialog: start_call failed", "application_id", applicationID, "err", err)
		return transport.Close(1011, "internal error")
	}

	sess := &session{
		engine:        e,
		transport:     transport,
		transcriber:   e.transcriber,
		cfg:           e.cfg,
		applicationID: applicationID,
		callID:        screeningCall.ID,
		prompt:        e.calls.GetPromptForApplication(applicationID),
		startedAt:     time.Now(),
	}

	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("dialog: session panicked: %v", r)
			}
		}()
		return sess.run(ctx)
	}()

	endCtx := context.WithoutCancel(ctx)
	if err := e.calls.EndCall(endCtx, applicationID, screeningCall.ID, sess.transcript); err != nil {
		slog.Error("dialog: end_call failed", "application_id", applicationID, "call_id", screeningCall.ID, "err", err)
	}

	if runErr != nil && !errors.Is(runErr, ErrTransportClosed) {
		_ = transport.Close(1011, "internal error")
		return runErr
	}
	return nil
}

// run executes the AwaitOpen→Closed state sequence for an already-
// started call. Its only job is to populate sess.transcript and decide
// how the connection closes; EndCall/registry bookkeeping is the
// caller's (Run's) responsibility so it happens exactly once even if
// run panics-recovers or returns early.
func (s *session) run(ctx context.Context) error {
	// GreetingSent
	greeting, err := s.engine.interviewer.Greeting(ctx, s.prompt.RoleContext)
	if err != nil {
		greeting = defaultGreeting
	}
	if err := s.sendEmmaTurn(ctx, greeting); err != nil {
		return err
	}

	// AwaitingReady: a single bounded wait for any signal of readiness;
	// its content is discarded, and a bare timeout is not an error.
	readyOutcome, err := s.waitForTurn(ctx, s.cfg.ReadyBaseTimeout, s.cfg.ReadyMaxTimeout, 0, "")
	if err != nil {
		return err
	}
	if readyOutcome.disconnect {
		return ErrTransportClosed
	}

	// AskingQuestion(i) / AwaitingAnswer(i) / OptionalRoleAnswer(i) loop.
	for i := 0; ; i++ {
		question, ok, err := s.engine.interviewer.NextQuestion(ctx, i, s.prompt.PreparedQuestions, s.prompt.RoleContext)
		if err != nil || !ok {
			break
		}
		if err := s.sendEmmaTurn(ctx, question); err != nil {
			return err
		}

		outcome, err := s.waitForTurn(ctx, s.cfg.AnswerTimeout, s.cfg.AnswerTimeout, s.cfg.SilenceRetries, defaultNudgeText)
		if err != nil {
			return err
		}
		if outcome.disconnect {
			return ErrTransportClosed
		}
		if !outcome.gotInput {
			s.addSegment(domain.SpeakerCandidate, "[no response]")
			break
		}

		s.addSegment(domain.SpeakerCandidate, outcome.text)

		if isRoleQuestion(outcome.text) {
			answer, err := s.engine.interviewer.AnswerRoleQuestion(ctx, outcome.text, s.prompt.RoleContext)
			if err == nil && answer != "" {
				if err := s.sendEmmaTurn(ctx, answer); err != nil {
					return err
				}
			}
		}
	}

	// Goodbye / Closing
	goodbye, err := s.engine.interviewer.Goodbye(ctx)
	if err != nil {
		goodbye = defaultGoodbye
	}
	if err := s.sendGoodbye(ctx, goodbye); err != nil {
		return err
	}
	return s.transport.Close(1000, "")
}

// sendEmmaTurn sends the emma_speaking/text/listening trio, records the
// transcript segment, and resets the echo reference to text, per
// SPEC_FULL.md's nudge/turn description.
func (s *session) sendEmmaTurn(ctx context.Context, text string) error {
	if err := s.send(ctx, OutgoingMessage{Type: OutgoingControl, Event: ControlEmmaSpeaking}); err != nil {
		return err
	}
	if err := s.send(ctx, OutgoingMessage{Type: OutgoingText, Text: text, Speaker: domain.SpeakerEmma}); err != nil {
		return err
	}
	if err := s.send(ctx, OutgoingMessage{Type: OutgoingControl, Event: ControlListening}); err != nil {
		return err
	}
	s.addSegment(domain.SpeakerEmma, text)
	s.lastEmmaText = text
	return nil
}

// sendGoodbye sends the closing Emma turn without a trailing listening
// control, followed by call_ended.
func (s *session) sendGoodbye(ctx context.Context, text string) error {
	if err := s.send(ctx, OutgoingMessage{Type: OutgoingControl, Event: ControlEmmaSpeaking}); err != nil {
		return err
	}
	if err := s.send(ctx, OutgoingMessage{Type: OutgoingText, Text: text, Speaker: domain.SpeakerEmma}); err != nil {
		return err
	}
	s.addSegment(domain.SpeakerEmma, text)
	s.lastEmmaText = text
	return s.send(ctx, OutgoingMessage{Type: OutgoingControl, Event: ControlCallEnded})
}

func (s *session) send(ctx context.Context, msg OutgoingMessage) error {
	if err := s.transport.Send(ctx, msg); err != nil {
		if errors.Is(err, ErrTransportClosed) {
			return ErrTransportClosed
		}
		return apperr.Wrap(apperr.ErrUpstreamFailure, "dialog: send failed", err)
	}
	return nil
}

func (s *session) addSegment(speaker, text string) {
	s.transcript = append(s.transcript, domain.TranscriptSegment{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Since(s.startedAt).Seconds(),
	})
}
