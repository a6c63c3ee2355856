package dialog

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// audioSession accumulates one turn's audio chunks until audio_end or a
// chunk with IsFinal arrives, at which point they are handed to the
// transcriber as a batch. A chunk's seq is not recorded; chunks are
// kept in arrival order and never reordered or gated on it (see
// SPEC_FULL.md's Open Question resolution).
type audioSession struct {
	active       bool
	codec        string
	sampleRateHz int
	chunks       [][]byte
}

func (a *audioSession) start(codec string, sampleRateHz int) {
	a.active = true
	a.codec = codec
	a.sampleRateHz = sampleRateHz
}

func (a *audioSession) append(dataB64 string) {
	decoded, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return
	}
	a.chunks = append(a.chunks, decoded)
}

// turnOutcome is the result of one waitForTurn call.
type turnOutcome struct {
	text       string
	gotInput   bool
	disconnect bool
}

// waitForTurn waits for one piece of candidate input: either merged text
// fragments or a fully transcribed audio upload, filtered through echo
// suppression against s.lastEmmaText. It nudges up to maxNudges times
// when nothing usable arrives before baseTimeout, extending the current
// attempt's deadline to audioMaxTimeout once an audio upload is observed
// in progress. nudgeText is sent verbatim as each nudge's Emma turn.
//
// The loop's only suspension points are transport.Receive (bounded by
// context deadlines), the transcriber call and the nudge sends, matching the
// no-spinning invariant in SPEC_FULL.md §5.
func (s *session) waitForTurn(ctx context.Context, baseTimeout, audioMaxTimeout time.Duration, maxNudges int, nudgeText string) (turnOutcome, error) {
	for attempt := 0; ; attempt++ {
		outcome, err := s.waitOneAttempt(ctx, baseTimeout, audioMaxTimeout)
		if err != nil {
			return turnOutcome{}, err
		}
		if outcome.disconnect {
			return outcome, nil
		}
		if outcome.gotInput {
			return outcome, nil
		}
		if attempt >= maxNudges {
			return outcome, nil
		}
		if err := s.sendEmmaTurn(ctx, nudgeText); err != nil {
			return turnOutcome{}, err
		}
	}
}

func (s *session) waitOneAttempt(ctx context.Context, baseTimeout, audioMaxTimeout time.Duration) (turnOutcome, error) {
	deadline := time.Now().Add(baseTimeout)
	var audio audioSession
	var pendingText string
	havePending := false
	var pendingDeadline time.Time

	for {
		recvDeadline := deadline
		if havePending && pendingDeadline.Before(recvDeadline) {
			recvDeadline = pendingDeadline
		}
		remaining := time.Until(recvDeadline)
		if remaining <= 0 {
			if havePending {
				return turnOutcome{text: pendingText, gotInput: true}, nil
			}
			return turnOutcome{}, nil
		}

		recvCtx, cancel := context.WithTimeout(ctx, remaining)
		msg, err := s.transport.Receive(recvCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				if havePending && !pendingDeadline.After(time.Now()) {
					return turnOutcome{text: pendingText, gotInput: true}, nil
				}
				if !deadline.After(time.Now()) {
					if havePending {
						return turnOutcome{text: pendingText, gotInput: true}, nil
					}
					return turnOutcome{}, nil
				}
				continue
			}
			if errors.Is(err, ErrTransportClosed) {
				return turnOutcome{disconnect: true}, nil
			}
			if ctx.Err() != nil {
				return turnOutcome{disconnect: true}, nil
			}
			return turnOutcome{}, err
		}

		switch msg.Type {
		case IncomingText:
			clean := sanitizeText(msg.Text)
			if clean == "" {
				continue
			}
			if isEcho(clean, s.lastEmmaText, s.cfg.EchoSimilarityThreshold) {
				continue
			}
			if !havePending {
				pendingText = clean
				havePending = true
			} else {
				pendingText = mergeFragments(pendingText, clean)
			}
			pendingDeadline = time.Now().Add(s.cfg.FragmentMergeWindow)

		case IncomingAudioStart:
			audio.start(msg.Codec, msg.SampleRateHz)
			if extended := time.Now().Add(audioMaxTimeout); extended.After(deadline) {
				deadline = extended
			}

		case IncomingAudioChunk:
			if !audio.active {
				audio.start(msg.Codec, 0)
			}
			if extended := time.Now().Add(audioMaxTimeout); extended.After(deadline) {
				deadline = extended
			}
			audio.append(msg.DataB64)
			if msg.IsFinal {
				if text, ok := s.transcribeAudio(ctx, &audio); ok {
					if !isEcho(text, s.lastEmmaText, s.cfg.EchoSimilarityThreshold) {
						return turnOutcome{text: text, gotInput: true}, nil
					}
				}
				audio = audioSession{}
			}

		case IncomingAudioEnd:
			if audio.active {
				if text, ok := s.transcribeAudio(ctx, &audio); ok {
					if !isEcho(text, s.lastEmmaText, s.cfg.EchoSimilarityThreshold) {
						return turnOutcome{text: text, gotInput: true}, nil
					}
				}
				audio = audioSession{}
			}
		}
	}
}

// transcribeAudio hands the accumulated chunks to the transcriber and
// sanitizes/validates the result against the human-text heuristic.
// Failing either the transcriber call or the heuristic, the turn keeps
// waiting rather than treating the failure as candidate input.
func (s *session) transcribeAudio(ctx context.Context, audio *audioSession) (string, bool) {
	if s.transcriber == nil || len(audio.chunks) == 0 {
		return "", false
	}
	raw, err := s.transcriber.Transcribe(ctx, audio.chunks, audio.codec, audio.sampleRateHz)
	if err != nil {
		return "", false
	}
	if strings.ContainsRune(raw, 0) {
		return "", false
	}
	clean := sanitizeText(raw)
	if !isHumanText(clean) {
		return "", false
	}
	return clean, true
}
