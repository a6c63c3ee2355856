package dialog

import "testing"

func TestSanitizeText_StripsControlCharsAndCollapsesNewlineTab(t *testing.T) {
	t.Parallel()
	in := "hello\x00\x01world\n\tfoo"
	got := sanitizeText(in)
	want := "helloworld foo"
	if got != want {
		t.Errorf("sanitizeText(%q) = %q, want %q", in, got, want)
	}
}

func TestSanitizeText_CollapsesWhitespace(t *testing.T) {
	t.Parallel()
	got := sanitizeText("  hi    there   ")
	if got != "hi there" {
		t.Errorf("sanitizeText whitespace collapse = %q", got)
	}
}

func TestIsHumanText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want bool
	}{
		{"hi", true},
		{"a", false},
		{"", false},
		{"!!!", false},
		{"yes", true},
		{"12", true},
	}
	for _, c := range cases {
		if got := isHumanText(c.in); got != c.want {
			t.Errorf("isHumanText(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeForComparison(t *testing.T) {
	t.Parallel()
	got := normalizeForComparison("Hello, World!!  Thanks.")
	want := "hello world thanks"
	if got != want {
		t.Errorf("normalizeForComparison = %q, want %q", got, want)
	}
}
