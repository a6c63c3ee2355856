package dialog

import "testing"

func TestIsEcho_ExactMatchIgnoringPunctuation(t *testing.T) {
	t.Parallel()
	emma := "Hello! Thanks for joining. I'm Emma."
	candidate := "hello thanks for joining im emma"
	if !isEcho(candidate, emma, 0.82) {
		t.Errorf("expected echo match for normalized-equal strings")
	}
}

func TestIsEcho_SymmetricAndIdempotent(t *testing.T) {
	t.Parallel()
	a := "Can you tell me about your relevant experience?"
	b := "can you tell me about your relevant experience"
	if isEcho(a, b, 0.82) != isEcho(b, a, 0.82) {
		t.Errorf("isEcho is not symmetric")
	}
	first := isEcho(a, b, 0.82)
	second := isEcho(normalizeForComparison(a), normalizeForComparison(b), 0.82)
	if first != second {
		t.Errorf("isEcho not idempotent under re-normalization")
	}
}

func TestIsEcho_RealAnswerNotEcho(t *testing.T) {
	t.Parallel()
	emma := "Can you tell me about your relevant experience?"
	candidate := "I have five years of Python and Java development."
	if isEcho(candidate, emma, 0.82) {
		t.Errorf("unrelated candidate answer should not be treated as echo")
	}
}

func TestIsEcho_EmptyLastEmmaText(t *testing.T) {
	t.Parallel()
	if isEcho("anything", "", 0.82) {
		t.Errorf("isEcho should be false with no prior Emma utterance")
	}
}
