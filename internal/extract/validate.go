package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Length bounds applied to every selected entity value.
const (
	minEntityLen  = 2
	maxEntityLen  = 50
	minAddressLen = 5
)

var pureNumericRE = regexp.MustCompile(`^\d+$`)

// verbPhraseRE rejects strings shaped like the start of an action phrase
// rather than an entity.
var verbPhraseRE = regexp.MustCompile(`(?i)^(?:calling|reporting|trying|going|getting|gonna|need|needs|want|wants|have|has|had|is|are|was|were|will|would|can|could|should|there)\b`)

// nonEntityPhrases are common transcript fragments that pass the pattern
// registries but are never caller names.
var nonEntityPhrases = map[string]bool{
	"thank you": true, "thanks a lot": true, "good morning": true,
	"good afternoon": true, "good evening": true, "excuse me": true,
	"right now": true, "last week": true, "last night": true,
	"this morning": true, "every day": true, "right there": true,
	"over there": true, "no problem": true,
}

// commonNonNames are single words that collide with the bare-token name
// pattern but are almost never names on their own.
var commonNonNames = map[string]bool{
	"street": true, "avenue": true, "today": true, "tomorrow": true,
	"yesterday": true, "morning": true, "okay": true, "yes": true,
	"yeah": true, "no": true, "please": true, "thanks": true,
	"sorry": true, "hello": true, "house": true, "corner": true,
	"block": true, "about": true, "because": true, "really": true,
	"there": true, "here": true, "just": true, "still": true,
}

// shortNameAllowList overrides commonNonNames for legitimate given names that
// collide with common words.
var shortNameAllowList = map[string]bool{
	"rose": true, "jack": true, "grace": true, "dawn": true,
	"summer": true, "angel": true, "joy": true, "may": true,
	"will": true, "art": true, "bill": true,
}

// streetPrefixWords are leading tokens that mark a recognizable address form
// even without a numeric prefix.
var streetPrefixWords = map[string]bool{
	"corner": true, "intersection": true, "near": true, "behind": true,
	"on": true, "in": true, "outside": true, "across": true,
	"down": true, "right": true,
}

// bareStreetTypeRE matches "number + bare street-type with no street name"
// ("40 Street"), which is rejected as structurally incomplete.
var bareStreetTypeRE = regexp.MustCompile(`(?i)^\d+\s+` + streetTypes + `\.?$`)

// validateName is the final hard gate for a name candidate that won scoring.
// The ordering of checks mirrors their cost: cheap structural rules first,
// the composite human-name check last.
func validateName(value string) bool {
	v := strings.TrimSpace(value)
	if len(v) < minEntityLen || len(v) > maxEntityLen {
		return false
	}
	if pureNumericRE.MatchString(v) {
		return false
	}
	if verbPhraseRE.MatchString(v) {
		return false
	}
	if nonEntityPhrases[strings.ToLower(v)] {
		return false
	}

	tokens := strings.Fields(v)
	if len(tokens) == 1 {
		w := strings.ToLower(trimPunct(tokens[0]))
		if commonNonNames[w] && !shortNameAllowList[w] {
			return false
		}
	}

	return looksLikeHumanName(v, tokens)
}

// looksLikeHumanName is the composite check: a candidate must satisfy at
// least two of the following signals (the strict "First Last" shape counts
// double):
//
//   - token count is 2–3
//   - at least one Proper-Case token
//   - strict "First Last" shape
//   - no intent/filler tokens
func looksLikeHumanName(value string, tokens []string) bool {
	points := 0

	if len(tokens) >= 2 && len(tokens) <= 3 {
		points++
	}

	proper := false
	intentFree := true
	for _, t := range tokens {
		w := trimPunct(t)
		if len(w) >= 2 && w[0] >= 'A' && w[0] <= 'Z' && strings.ToLower(w[1:]) == w[1:] {
			proper = true
		}
		if intentTokens[strings.ToLower(w)] {
			intentFree = false
		}
	}
	if proper {
		points++
	}
	if properPairRE.MatchString(value) {
		points += 2
	}
	if intentFree {
		points++
	}

	return points >= 2
}

// validateAddress is the final hard gate for an address candidate. In relaxed
// mode (re-evaluation recovery) the leading-token requirement is dropped.
func validateAddress(value string, relaxed bool) bool {
	v := strings.TrimSpace(value)
	if len(v) < minAddressLen || len(v) > maxEntityLen+30 {
		return false
	}
	if bareStreetTypeRE.MatchString(strings.TrimSuffix(v, " (Approximate)")) {
		return false
	}
	if relaxed {
		return true
	}

	if strings.HasSuffix(v, "(Approximate)") {
		return true
	}

	tokens := strings.Fields(v)
	if len(tokens) == 0 {
		return false
	}
	first := strings.ToLower(trimPunct(tokens[0]))
	if first == "" {
		return false
	}
	switch {
	case first[0] >= '0' && first[0] <= '9':
		return true
	case isNumberWord(first):
		return true
	case streetPrefixWords[first]:
		return true
	}
	return false
}

// sortCandidates orders candidates by adjusted score descending; equal scores
// keep generation order. The sort is stable by construction: the generation
// sequence number is an explicit secondary key, so ordering never depends on
// incidental slice order.
func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].AdjustedScore != cands[j].AdjustedScore {
			return cands[i].AdjustedScore > cands[j].AdjustedScore
		}
		return cands[i].seq < cands[j].seq
	})
}
