package extract

import "regexp"

// Pattern base scores. The gap between tiers is intentionally larger than any
// single structural bonus so a bare capitalized token cannot outrank an
// explicit self-identification on bonuses alone.
const (
	scoreNameSelfIdent   = 500
	scoreNameThisIs      = 420
	scoreNameIAm         = 400
	scoreNameCasualIntro = 320
	scoreNameCallerTag   = 300
	scoreNameProperPair  = 120
	scoreNameBareToken   = 40

	scoreAddrNumericStreet = 500
	scoreAddrSpokenStreet  = 450
	scoreAddrPrefixPhrase  = 380
	scoreAddrNumberBare    = 200
	scoreAddrCrossStreet   = 150
	scoreAddrRelative      = 100
)

// streetTypes is the alternation of recognized street-type suffixes shared by
// several address patterns and by the spoken-number normalizer's stop set.
const streetTypes = `(?:street|st|avenue|ave|boulevard|blvd|drive|dr|road|rd|lane|ln|court|ct|place|pl|way|circle|cir|terrace|ter|highway|hwy|parkway|pkwy)`

// numberWordAlt is the alternation of spoken number words recognized in
// spoken-number-prefixed address forms.
const numberWordAlt = `(?:zero|oh|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand)`

// namePatterns returns the name registry, ranked from explicit
// self-identification down to bare capitalized tokens. Registration order is
// the documented tie-break for equal scores.
func namePatterns() []pattern {
	return []pattern{
		{
			// "my name is John Smith", "my name's John"
			re:        regexp.MustCompile(`(?i:\bmy name(?:'s| is))\s+([A-Za-z][\w'-]*(?:\s+[A-Z][\w'-]*){0,2})`),
			id:        "name_self_ident",
			baseScore: scoreNameSelfIdent,
		},
		{
			// "this is Maria Lopez"
			re:        regexp.MustCompile(`(?i:\bthis is)\s+([A-Z][\w'-]*(?:\s+[A-Z][\w'-]*){0,2})`),
			id:        "name_this_is",
			baseScore: scoreNameThisIs,
		},
		{
			// "I'm Derek", "I am Derek Jones"
			re:        regexp.MustCompile(`(?i:\bI(?:'m| am))\s+([A-Z][\w'-]*(?:\s+[A-Z][\w'-]*){0,2})`),
			id:        "name_i_am",
			baseScore: scoreNameIAm,
		},
		{
			// "Hi, Maria calling", "hello, it's Dave"
			re:        regexp.MustCompile(`(?i:\b(?:hi|hey|hello)[,.]?\s+(?:it's\s+|it is\s+)?)([A-Z][\w'-]*(?:\s+[A-Z][\w'-]*)?)`),
			id:        "name_casual_intro",
			baseScore: scoreNameCasualIntro,
		},
		{
			// "Maria Lopez calling", "Dave here"
			re:        regexp.MustCompile(`\b([A-Z][a-z'-]+(?:\s+[A-Z][a-z'-]+)?)\s+(?:calling|here)\b`),
			id:        "name_caller_tag",
			baseScore: scoreNameCallerTag,
		},
		{
			// Bare "First Last" proper pair anywhere in the text.
			re:        regexp.MustCompile(`\b([A-Z][a-z'-]+\s+[A-Z][a-z'-]+)\b`),
			id:        "name_proper_pair",
			baseScore: scoreNameProperPair,
		},
		{
			// Last resort: any bare capitalized token.
			re:        regexp.MustCompile(`\b([A-Z][a-z'-]{2,})\b`),
			id:        "name_bare_token",
			baseScore: scoreNameBareToken,
		},
	}
}

// addressPatterns returns the address registry, ranked from numeric-prefixed
// street addresses down to relative/contextual forms. Contextual entries are
// tagged approximate; their values carry an "(Approximate)" suffix.
func addressPatterns() []pattern {
	return []pattern{
		{
			// "5484 Oak Drive", "123 North Main Street"
			re:        regexp.MustCompile(`(?i)\b(\d+\s+[A-Za-z][\w'.]*(?:\s+[A-Za-z][\w'.]*){0,3}\s+` + streetTypes + `)\b`),
			id:        "addr_numeric_street",
			baseScore: scoreAddrNumericStreet,
		},
		{
			// "five four eight four Oak Drive" — spoken-number prefix.
			re:        regexp.MustCompile(`(?i)\b(` + numberWordAlt + `(?:\s+` + numberWordAlt + `)*\s+[A-Za-z][\w'.]*(?:\s+[A-Za-z][\w'.]*){0,3}\s+` + streetTypes + `)\b`),
			id:        "addr_spoken_street",
			baseScore: scoreAddrSpokenStreet,
		},
		{
			// "I live at 40 Elm", "my address is 12 Birch Road apartment 3"
			re:        regexp.MustCompile(`(?i)\b(?:i live (?:at|on)|my address is|located at|the address is|it's at)\s+([\w][\w' .-]{3,50})`),
			id:        "addr_prefix_phrase",
			baseScore: scoreAddrPrefixPhrase,
		},
		{
			// "40 Elm" — number plus capitalized word, no street-type suffix.
			re:        regexp.MustCompile(`\b(\d+\s+[A-Z][a-z'-]+)\b`),
			id:        "addr_number_bare",
			baseScore: scoreAddrNumberBare,
		},
		{
			// "corner of Fifth and Main", "intersection of Oak and Pine"
			re:          regexp.MustCompile(`(?i)\b(?:corner of|intersection of|cross streets?(?: are| is)?)\s+([\w' .-]+?\s+and\s+[\w' .-]+?)(?:[,.!?]|$)`),
			id:          "addr_cross_street",
			baseScore:   scoreAddrCrossStreet,
			approximate: true,
		},
		{
			// "on my block", "right in front of my house"
			re:          regexp.MustCompile(`(?i)\b((?:right\s+)?(?:on my block|in front of my (?:house|building|place)|outside my (?:house|building|apartment)|across (?:the street|from my house)|down (?:the|my) street|near my (?:house|building)))\b`),
			id:          "addr_relative",
			baseScore:   scoreAddrRelative,
			approximate: true,
		},
	}
}
