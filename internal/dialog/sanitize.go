package dialog

import "strings"

const (
	lineSeparator      rune = ' '
	paragraphSeparator rune = ' '
)

// sanitizeText strips control characters below 0x20 (keeping \n and
// \t), replaces the Unicode line/paragraph separators with spaces,
// collapses whitespace runs, and trims the result. Grounded on
// original_source's text-cleaning pass applied to both transcriber
// output and inbound text messages before they ever reach transcript
// storage or echo comparison.
func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == lineSeparator || r == paragraphSeparator {
			return ' '
		}
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return collapseWhitespace(s)
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if isSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// isHumanText implements the transcriber-output heuristic: length >= 2,
// at least one alphanumeric rune, and an alphanumeric-to-total ratio
// >= 0.25. Control bytes below 0x20 are stripped before this runs, so
// transcriber output containing NUL is rejected earlier, by
// transcribeAudio, before sanitizing.
func isHumanText(s string) bool {
	if len([]rune(s)) < 2 {
		return false
	}
	total := 0
	alnum := 0
	for _, r := range s {
		total++
		if isAlphanumeric(r) {
			alnum++
		}
	}
	if alnum == 0 {
		return false
	}
	return float64(alnum)/float64(total) >= 0.25
}

func isAlphanumeric(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	default:
		return false
	}
}

// normalizeForComparison lowercases s and collapses every run of
// non-alphanumeric characters to a single space, then trims. Used by
// echo suppression so punctuation and case differences never defeat
// the comparison.
func normalizeForComparison(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range strings.ToLower(s) {
		if isAlphanumeric(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
		}
		prevSpace = true
	}
	return strings.TrimSpace(b.String())
}
