package extract

import (
	"regexp"
	"strings"
)

// fillerTokens are language-spanning filler words removed at word boundaries.
// Comparison is case-insensitive on the punctuation-trimmed token.
var fillerTokens = map[string]bool{
	"uh": true, "uhh": true, "um": true, "umm": true, "uhm": true,
	"er": true, "erm": true, "ah": true, "ahh": true,
	"hm": true, "hmm": true, "mhm": true,
}

// discourseMarkerRE matches multi-word discourse markers ("you know",
// "I mean") including an optional trailing comma.
var discourseMarkerRE = regexp.MustCompile(`(?i)\b(?:you know|i mean)\b,?`)

// ellipsisRE matches multi-dot ellipses and the unicode ellipsis character.
var ellipsisRE = regexp.MustCompile(`\.{2,}|…`)

// Normalize strips filler tokens, discourse markers, stutters ("I-I" → "I"),
// immediately repeated tokens ("the the" → "the"), and multi-dot ellipses,
// then collapses whitespace.
//
// Normalize is idempotent: applying it to already-normalized text is a no-op.
// It never fails; empty or whitespace-only input is returned unchanged.
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}

	t := ellipsisRE.ReplaceAllString(s, " ")
	t = discourseMarkerRE.ReplaceAllString(t, " ")

	fields := strings.Fields(t)
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		if fillerTokens[strings.ToLower(trimPunct(w))] {
			continue
		}
		w = collapseStutter(w)
		if len(out) > 0 && strings.EqualFold(trimPunct(out[len(out)-1]), trimPunct(w)) {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// collapseStutter reduces a hyphenated stutter ("I-I", "th-the") to its final
// part, preserving trailing punctuation. Genuine hyphenated words are left
// alone because their parts differ.
func collapseStutter(w string) string {
	core := strings.TrimRight(w, ".,!?;:")
	parts := strings.Split(core, "-")
	if len(parts) != 2 {
		return w
	}
	a, b := parts[0], parts[1]
	if a == "" || b == "" {
		return w
	}
	// Equal parts ("I-I") or a truncated first part ("th-the") both count as
	// stutter; words like "drive-in" survive because neither holds.
	if strings.HasPrefix(strings.ToLower(b), strings.ToLower(a)) {
		return b + w[len(core):]
	}
	return w
}

// trimPunct strips leading and trailing sentence punctuation from a token.
func trimPunct(w string) string {
	return strings.Trim(w, ".,!?;:")
}
