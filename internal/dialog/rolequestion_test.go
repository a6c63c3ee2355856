package dialog

import "testing"

func TestIsRoleQuestion(t *testing.T) {
	t.Parallel()
	cases := []struct {
		text string
		want bool
	}{
		{"What does the role involve day to day?", true},
		{"Can you tell me more about the team", true},
		{"is the position remote?", true},
		{"I have five years of Python experience", false},
		{"How are you doing today", false}, // interrogative opener but no role keyword
		{"what stack do you use", true},
	}
	for _, c := range cases {
		if got := isRoleQuestion(c.text); got != c.want {
			t.Errorf("isRoleQuestion(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
