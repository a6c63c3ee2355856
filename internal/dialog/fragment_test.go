package dialog

import "testing"

func TestMergeFragments_PrefixSubsumes(t *testing.T) {
	t.Parallel()
	a := "I have five years"
	b := "I have five years of Python experience"
	if got := mergeFragments(a, b); got != b {
		t.Errorf("mergeFragments(%q, %q) = %q, want %q", a, b, got, b)
	}
}

func TestMergeFragments_Idempotent(t *testing.T) {
	t.Parallel()
	a, b := "I have five years", "five years of Python experience"
	once := mergeFragments(a, b)
	twice := mergeFragments(once, b)
	if once != twice {
		t.Errorf("merge not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestMergeFragments_SuffixPrefixOverlap(t *testing.T) {
	t.Parallel()
	got := mergeFragments("I have five years", "five years of Python")
	want := "I have five years of Python"
	if got != want {
		t.Errorf("mergeFragments overlap = %q, want %q", got, want)
	}
}

func TestMergeFragments_NoOverlapConcatenatesWithSpace(t *testing.T) {
	t.Parallel()
	got := mergeFragments("Hello there", "how are you")
	want := "Hello there how are you"
	if got != want {
		t.Errorf("mergeFragments no-overlap = %q, want %q", got, want)
	}
}

func TestMergeFragments_EmptyOperands(t *testing.T) {
	t.Parallel()
	if got := mergeFragments("", "hi"); got != "hi" {
		t.Errorf("mergeFragments('', 'hi') = %q", got)
	}
	if got := mergeFragments("hi", ""); got != "hi" {
		t.Errorf("mergeFragments('hi', '') = %q", got)
	}
}
