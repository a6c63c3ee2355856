package dialog

import "strings"

// mergeFragments combines two consecutive text-message fragments from a
// speech-to-text client into one candidate utterance.
//
// prev is held as pending_text from an earlier fragment; next is the
// fragment that just arrived inside the continuation window. The merge
// is idempotent (mergeFragments(mergeFragments(a, b), b) == mergeFragments(a, b))
// and prefix-subsuming (if a is a prefix of b, the result is b):
//
//  1. If, case-insensitively, one fragment contains the other, the
//     longer one wins outright (handles an STT client re-emitting the
//     full utterance after an earlier partial one).
//  2. Otherwise, the longest suffix of prev that is a prefix of next is
//     dropped from next before concatenating, so the overlapping region
//     is not duplicated.
//  3. Failing any overlap, the two fragments are joined with a single
//     space.
//
// The comparison is case-insensitive throughout; the output always
// preserves next's original casing for the un-overlapped remainder.
func mergeFragments(prev, next string) string {
	if prev == "" {
		return next
	}
	if next == "" {
		return prev
	}

	prevLower := strings.ToLower(prev)
	nextLower := strings.ToLower(next)

	if strings.Contains(nextLower, prevLower) {
		return next
	}
	if strings.Contains(prevLower, nextLower) {
		return prev
	}

	if overlap := longestSuffixPrefixOverlap(prevLower, nextLower); overlap > 0 {
		return prev + next[overlap:]
	}
	return prev + " " + next
}

// longestSuffixPrefixOverlap returns the byte length of the longest
// suffix of a that equals a prefix of b. Both inputs are expected to be
// the lowercased form of strings whose byte length is unchanged by
// lowercasing (true for the ASCII/Latin text this dialog handles), so
// the returned offset is valid against the original un-lowercased b too.
func longestSuffixPrefixOverlap(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for n := max; n > 0; n-- {
		if a[len(a)-n:] == b[:n] {
			return n
		}
	}
	return 0
}
