package dialog

import "strings"

// roleKeywords are required to be present (case-insensitively) in a
// candidate utterance for it to be considered role-directed.
var roleKeywords = []string{
	"role", "job", "responsibilit", "team", "stack", "expectation",
	"position", "company",
}

// interrogativeOpeners are the sentence-initial phrases that, together
// with a role keyword, mark an utterance as a question even without a
// literal "?" (voice transcripts frequently drop punctuation).
var interrogativeOpeners = []string{
	"what", "how", "why", "when", "where", "which",
	"can you", "could you", "would you", "is the", "are the",
}

// isRoleQuestion implements the role-question heuristic: the utterance
// must contain at least one role keyword AND either contain "?" or
// begin with one of the interrogative openers.
func isRoleQuestion(text string) bool {
	lower := strings.ToLower(text)

	hasKeyword := false
	for _, kw := range roleKeywords {
		if strings.Contains(lower, kw) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}

	if strings.Contains(lower, "?") {
		return true
	}
	trimmed := strings.TrimSpace(lower)
	for _, opener := range interrogativeOpeners {
		if strings.HasPrefix(trimmed, opener) {
			return true
		}
	}
	return false
}
