package extract

import (
	"strconv"
	"strings"
)

// Spoken number vocabulary. Split by grammatical role because the two
// interpretation strategies treat them differently: a run of bare digit words
// is concatenated positionally, while tens/teens/multipliers form compound
// groups.
var (
	digitWords = map[string]int{
		"zero": 0, "oh": 0, "one": 1, "two": 2, "three": 3, "four": 4,
		"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	}

	teenWords = map[string]int{
		"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
		"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	}

	tensWords = map[string]int{
		"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
		"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	}

	multiplierWords = map[string]int{
		"hundred": 100, "thousand": 1000,
	}
)

// numberStopWords terminate the leading number scan even though they follow
// number words; street-type keywords belong to the street name, not the house
// number.
var numberStopWords = map[string]bool{
	"street": true, "st": true, "avenue": true, "ave": true,
	"boulevard": true, "blvd": true, "drive": true, "dr": true,
	"road": true, "rd": true, "lane": true, "ln": true,
	"court": true, "ct": true, "place": true, "pl": true,
	"way": true, "circle": true, "cir": true, "terrace": true,
	"ter": true, "highway": true, "hwy": true, "parkway": true, "pkwy": true,
}

// NormalizeSpokenNumbers converts the leading spoken-number words of an
// address string into a digit prefix.
//
// Two interpretation strategies apply:
//
//   - When every consumed token is a bare digit word, digits concatenate
//     positionally: "five four eight four Oak Drive" → "5484 Oak Drive".
//   - Otherwise tokens group into compound numbers (tens+ones merge,
//     multipliers scale the running group) and the groups concatenate as
//     strings: "eleven twenty two Main Street" → "1122 Main Street",
//     "forty Main Street" → "40 Main Street".
//
// The scan stops at the first street-type keyword or non-number token. When
// no leading number words are found the input is returned unchanged.
func NormalizeSpokenNumbers(address string) string {
	tokens := strings.Fields(address)

	consumed := 0
	for consumed < len(tokens) {
		w := strings.ToLower(trimPunct(tokens[consumed]))
		if numberStopWords[w] || !isNumberWord(w) {
			break
		}
		consumed++
	}
	if consumed == 0 {
		return address
	}

	words := make([]string, consumed)
	allDigits := true
	for i := range consumed {
		words[i] = strings.ToLower(trimPunct(tokens[i]))
		if _, ok := digitWords[words[i]]; !ok {
			allDigits = false
		}
	}

	var prefix string
	if allDigits {
		var sb strings.Builder
		for _, w := range words {
			sb.WriteString(strconv.Itoa(digitWords[w]))
		}
		prefix = sb.String()
	} else {
		prefix = compoundNumber(words)
	}

	rest := strings.Join(tokens[consumed:], " ")
	if rest == "" {
		return prefix
	}
	return prefix + " " + rest
}

// compoundNumber groups number words into compound values and concatenates
// the groups: "eleven twenty two" → "11" + "22" → "1122".
func compoundNumber(words []string) string {
	var groups []string
	group := 0
	open := false // a group value has been started but not flushed

	flush := func() {
		if open {
			groups = append(groups, strconv.Itoa(group))
			group = 0
			open = false
		}
	}

	for _, w := range words {
		switch {
		case multiplierWords[w] != 0:
			if !open {
				group = 1
			}
			group *= multiplierWords[w]
			open = true
		case tensWords[w] != 0:
			flush()
			group = tensWords[w]
			open = true
		case teenWords[w] != 0:
			flush()
			group = teenWords[w]
			open = true
		default:
			d, ok := digitWords[w]
			if !ok {
				continue
			}
			// A ones word merges into an open tens group ("twenty"+"two"→22);
			// otherwise it starts a fresh group.
			if open && group >= 20 && group <= 90 && group%10 == 0 {
				group += d
			} else {
				flush()
				group = d
				open = true
			}
		}
	}
	flush()

	return strings.Join(groups, "")
}

// isNumberWord reports whether w is any recognized spoken number word.
func isNumberWord(w string) bool {
	if _, ok := digitWords[w]; ok {
		return true
	}
	if _, ok := teenWords[w]; ok {
		return true
	}
	if _, ok := tensWords[w]; ok {
		return true
	}
	_, ok := multiplierWords[w]
	return ok
}
