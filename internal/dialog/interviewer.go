package dialog

import (
	"context"

	"github.com/MrWong99/screeningd/internal/modelclient"
)

// Interviewer produces Emma's side of the conversation: the greeting,
// each prepared question in order, an out-of-band answer when the
// candidate asks a role-directed question, and the closing goodbye.
//
// Grounded on original_source's EmmaService: greeting/goodbye are fixed
// templates, next-question simply walks the prepared list, and only
// answering a role question calls out to a language model.
type Interviewer interface {
	Greeting(ctx context.Context, roleContext string) (string, error)
	NextQuestion(ctx context.Context, index int, preparedQuestions []string, roleContext string) (question string, ok bool, err error)
	AnswerRoleQuestion(ctx context.Context, question, roleContext string) (string, error)
	Goodbye(ctx context.Context) (string, error)
}

// ChatCompleter is the narrow chat-model capability AnswerRoleQuestion
// needs. *modelclient.ChatClient satisfies it.
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt string, history []modelclient.Message) (string, error)
}

const (
	defaultGreeting = "Hello! Thanks for joining. I'm Emma. I'll ask you a few questions about your experience. Ready when you are."
	defaultGoodbye  = "That's all from my side. Thanks for your time. Goodbye!"
)

// Emma is the default Interviewer: static greeting/goodbye templates, a
// prepared-question walk, and role-question answers generated by a chat
// model constrained to the application's role context.
type Emma struct {
	Chat ChatCompleter
}

// NewEmma constructs an Emma interviewer. chat may be nil, in which case
// AnswerRoleQuestion falls back to echoing a truncated role context
// instead of calling a model.
func NewEmma(chat ChatCompleter) *Emma {
	return &Emma{Chat: chat}
}

func (e *Emma) Greeting(_ context.Context, _ string) (string, error) {
	return defaultGreeting, nil
}

func (e *Emma) NextQuestion(_ context.Context, index int, preparedQuestions []string, _ string) (string, bool, error) {
	if index < 0 || index >= len(preparedQuestions) {
		return "", false, nil
	}
	return preparedQuestions[index], true, nil
}

func (e *Emma) AnswerRoleQuestion(ctx context.Context, question, roleContext string) (string, error) {
	if e.Chat == nil {
		return fallbackRoleAnswer(roleContext), nil
	}
	system := "Answer only using this role context. Do not invent information.\n\n" + roleContext
	answer, err := e.Chat.Complete(ctx, system, []modelclient.Message{{Role: "user", Content: question}})
	if err != nil {
		return fallbackRoleAnswer(roleContext), nil
	}
	return answer, nil
}

func (e *Emma) Goodbye(_ context.Context) (string, error) {
	return defaultGoodbye, nil
}

func fallbackRoleAnswer(roleContext string) string {
	const maxLen = 200
	truncated := roleContext
	if len([]rune(truncated)) > maxLen {
		truncated = string([]rune(truncated)[:maxLen])
	}
	return "Based on the role: " + truncated + "..."
}
