package extract

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

// Scoring adjustments. Values are additive on top of the pattern base score;
// disqualification bypasses arithmetic entirely (see [Candidate.Disqualified]).
const (
	penaltyIntentToken    = -300 // per occurrence
	penaltySingleLower    = -200 // name candidates only
	penaltyContainsDigits = -80
	penaltyNumberWordLead = -150 // name candidates opening with a spoken number
	bonusProperPair       = 150
	bonusLatePosition     = 50 // applied once past each of the two thresholds
)

// Late-position thresholds on [Candidate.positionRatio]. Statements later in
// a call are treated as corrections of earlier ones.
const (
	latePositionFirst  = 0.5
	latePositionSecond = 0.8
)

// crossFieldOverlapMax is the token-overlap ratio between a name candidate
// and the selected address at which the name is disqualified as an address
// fragment.
const crossFieldOverlapMax = 0.5

// organizationVocabulary is the closed token set that disqualifies a
// candidate outright: government/civic terms, corporate suffixes, and
// platform/system terms. A caller's name is never one of these.
var organizationVocabulary = []string{
	"department", "city", "county", "municipal", "government", "bureau",
	"division", "agency", "council", "office", "district", "authority",
	"services", "hotline", "dispatch",
	"inc", "llc", "corp", "corporation", "company", "enterprises",
	"bot", "system", "assistant", "automated", "voicemail",
}

// organizationShapeRE matches organization phrase shapes regardless of the
// individual tokens involved.
var organizationShapeRE = regexp.MustCompile(`(?i)\b(?:\w+ department|city of \w+|\w+ (?:ai|bot|system))\b`)

// intentTokens signal that a match is a fragment of an action phrase rather
// than an entity: verbs of the call itself and domain nouns of the issues
// callers report.
var intentTokens = map[string]bool{
	"calling": true, "call": true, "report": true, "reporting": true,
	"problem": true, "issue": true, "complaint": true, "broken": true,
	"pothole": true, "trash": true, "garbage": true, "streetlight": true,
	"graffiti": true, "leak": true, "leaking": true, "noise": true,
	"water": true, "sewer": true, "sidewalk": true, "help": true,
	"fix": true, "fixed": true,
}

// properPairRE is the strict "First Last" (or "First Middle Last") shape.
var properPairRE = regexp.MustCompile(`^[A-Z][a-z'-]+ [A-Z][a-z'-]+( [A-Z][a-z'-]+)?$`)

var containsDigitRE = regexp.MustCompile(`\d`)

// scoreName computes the adjusted score for a name candidate.
// knownAddress, when non-empty, enables cross-field arbitration against the
// already-selected address.
func scoreName(c *Candidate, knownAddress string) {
	if isOrganization(c.Value) {
		c.Disqualified = true
		return
	}
	if knownAddress != "" && isAddressFragment(c.Value, knownAddress) {
		c.Disqualified = true
		return
	}

	score := c.BaseScore
	tokens := strings.Fields(c.Value)

	for _, t := range tokens {
		if intentTokens[strings.ToLower(trimPunct(t))] {
			score += penaltyIntentToken
		}
	}

	if len(tokens) == 1 && strings.ToLower(tokens[0]) == tokens[0] {
		score += penaltySingleLower
	}
	if containsDigitRE.MatchString(c.Value) {
		score += penaltyContainsDigits
	}
	if len(tokens) > 0 && isNumberWord(strings.ToLower(trimPunct(tokens[0]))) {
		score += penaltyNumberWordLead
	}
	if len(tokens) >= 2 && len(tokens) <= 3 && properPairRE.MatchString(c.Value) {
		score += bonusProperPair
	}
	score += latePositionBonus(c.positionRatio)

	c.AdjustedScore = score
}

// scoreAddress computes the adjusted score for an address candidate. Address
// candidates skip the name-specific structural rules but share the
// organization disqualification and position bonuses.
func scoreAddress(c *Candidate) {
	if isOrganization(c.Value) {
		c.Disqualified = true
		return
	}

	score := c.BaseScore
	for _, t := range strings.Fields(c.Value) {
		if intentTokens[strings.ToLower(trimPunct(t))] {
			score += penaltyIntentToken
		}
	}
	score += latePositionBonus(c.positionRatio)

	c.AdjustedScore = score
}

func latePositionBonus(ratio float64) int {
	bonus := 0
	if ratio >= latePositionFirst {
		bonus += bonusLatePosition
	}
	if ratio >= latePositionSecond {
		bonus += bonusLatePosition
	}
	return bonus
}

// isOrganization reports whether value contains an organization-vocabulary
// token or matches an organization phrase shape. Token comparison tolerates a
// single-edit STT garbling on tokens of six or more characters
// (Damerau-Levenshtein distance 1).
func isOrganization(value string) bool {
	if organizationShapeRE.MatchString(value) {
		return true
	}
	for _, t := range strings.Fields(value) {
		w := strings.ToLower(trimPunct(t))
		for _, org := range organizationVocabulary {
			if w == org {
				return true
			}
			if len(org) >= 6 && len(w) >= 6 && matchr.DamerauLevenshtein(w, org) <= 1 {
				return true
			}
		}
	}
	return false
}

// isAddressFragment reports whether a name candidate is really a fragment of
// the selected address. Two signals disqualify:
//
//   - token overlap between candidate and address of at least
//     [crossFieldOverlapMax], or
//   - at least half the candidate's tokens are spoken number words while the
//     address contains digits ("Five Three La" against "53 La Cienega Blvd").
func isAddressFragment(name, address string) bool {
	nameTokens := strings.Fields(strings.ToLower(name))
	if len(nameTokens) == 0 {
		return false
	}

	addrTokens := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(address)) {
		addrTokens[trimPunct(t)] = true
	}

	overlap := 0
	numberWordCount := 0
	for _, t := range nameTokens {
		w := trimPunct(t)
		if addrTokens[w] {
			overlap++
		}
		if isNumberWord(w) {
			numberWordCount++
		}
	}

	if float64(overlap)/float64(len(nameTokens)) >= crossFieldOverlapMax {
		return true
	}
	if numberWordCount*2 >= len(nameTokens) && containsDigitRE.MatchString(address) {
		return true
	}
	return false
}
