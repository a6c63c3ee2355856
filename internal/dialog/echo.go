package dialog

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// minEchoCompareLen is the normalized-length floor below which the
// substring/length-ratio echo test is skipped: very short utterances
// produce unreliable substring ratios ("hi" is a substring of almost
// anything).
const minEchoCompareLen = 30

// isEcho reports whether candidateText is an echo of lastEmmaText: the
// candidate's client (often a local STT loop picking up Emma's own TTS
// output) looped Emma's utterance back as if it were a reply. Symmetric
// and idempotent under whitespace/punctuation/case differences, since
// both inputs pass through the same normalization first.
//
// Three independent tests, any one of which is sufficient:
//  1. Exact equality after normalization.
//  2. Jaro-Winkler similarity >= threshold.
//  3. One string contains the other, and both normalized forms are at
//     least minEchoCompareLen runes with a length ratio >= 0.88.
func isEcho(candidateText, lastEmmaText string, threshold float64) bool {
	if lastEmmaText == "" {
		return false
	}
	a := normalizeForComparison(candidateText)
	b := normalizeForComparison(lastEmmaText)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if matchr.JaroWinkler(a, b, false) >= threshold {
		return true
	}

	aLen, bLen := len([]rune(a)), len([]rune(b))
	if aLen < minEchoCompareLen || bLen < minEchoCompareLen {
		return false
	}
	shorter, longer := aLen, bLen
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	ratio := float64(shorter) / float64(longer)
	if ratio < 0.88 {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
