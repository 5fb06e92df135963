package classify

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

// summaryMaxLen bounds the fallback summary produced from raw report text.
const summaryMaxLen = 140

// intentRule maps a phrase pattern to an intent with an explicit priority.
// Higher priority wins; equal priorities resolve to the earlier table entry.
type intentRule struct {
	pattern  *regexp.Regexp
	intent   Intent
	priority int
}

// departmentRule maps a phrase pattern to a department with an explicit
// priority. Same tie-break as intentRule.
type departmentRule struct {
	pattern    *regexp.Regexp
	department Department
	priority   int
}

// intentRules and departmentRules are evaluated independently. The tables are
// ordered slices so the registration-index tie-break is deterministic.
var intentRules = []intentRule{
	{regexp.MustCompile(`(?i)\bpot\s?holes?\b|\bhole in the (?:road|street)\b`), IntentPothole, 100},
	{regexp.MustCompile(`(?i)\bstreet\s?lights?\b|\blamp\s?posts?\b`), IntentStreetlight, 100},
	{regexp.MustCompile(`(?i)\bwater main\b|\bwater leak(?:ing|s)?\b|\bburst pipe\b|\bflood(?:ing|ed)?\b`), IntentWaterLeak, 100},
	{regexp.MustCompile(`(?i)\btrash\b|\bgarbage\b|\brecycling\b|\bmissed (?:my )?pick\s?up\b|\bdumpster\b`), IntentTrashCollection, 90},
	{regexp.MustCompile(`(?i)\bgraffiti\b|\bspray[- ]?paint(?:ed)?\b|\bvandal(?:ism|ized)\b`), IntentGraffiti, 90},
	{regexp.MustCompile(`(?i)\bside\s?walk\b.*\b(?:crack|broken|uplift|uneven|damage)`), IntentSidewalkDamage, 90},
	{regexp.MustCompile(`(?i)\b(?:fallen|downed|hanging) (?:tree|branch|limb)\b|\btree (?:fell|down|blocking)\b`), IntentTreeHazard, 90},
	{regexp.MustCompile(`(?i)\b(?:stray|dead|loose|aggressive) (?:dog|cat|animal|raccoon|coyote)s?\b|\banimal control\b`), IntentAnimalControl, 90},
	{regexp.MustCompile(`(?i)\b(?:illegally|double) parked\b|\babandoned (?:car|vehicle)\b|\bblocking (?:my )?driveway\b`), IntentParkingViolation, 80},
	{regexp.MustCompile(`(?i)\b(?:loud|noise|noisy)\b.*\b(?:music|party|neighbors?|construction)\b|\bnoise complaint\b`), IntentNoiseComplaint, 80},
	{regexp.MustCompile(`(?i)\broad\b|\bstreet\b|\bpavement\b`), IntentOther, 10},
}

var departmentRules = []departmentRule{
	{regexp.MustCompile(`(?i)\bwater main\b|\bwater leak\b|\bburst pipe\b|\bsewer\b|\bstorm drain\b`), DepartmentWaterUtilities, 100},
	{regexp.MustCompile(`(?i)\bpot\s?holes?\b|\bstreet\s?lights?\b|\bside\s?walk\b|\bpavement\b`), DepartmentPublicWorks, 100},
	{regexp.MustCompile(`(?i)\btrash\b|\bgarbage\b|\brecycling\b|\bdumpster\b`), DepartmentSanitation, 90},
	{regexp.MustCompile(`(?i)\b(?:stray|dead|loose|aggressive) (?:dog|cat|animal|raccoon|coyote)s?\b|\banimal\b`), DepartmentAnimalServices, 90},
	{regexp.MustCompile(`(?i)\bparked\b|\bparking\b|\btraffic\b|\babandoned (?:car|vehicle)\b`), DepartmentTransportation, 80},
	{regexp.MustCompile(`(?i)\btree\b|\bbranch\b|\bpark\b|\bplayground\b`), DepartmentParksRecreation, 80},
	{regexp.MustCompile(`(?i)\bgraffiti\b|\bvandal(?:ism|ized)\b|\bnoise\b|\bnuisance\b`), DepartmentCodeEnforcement, 70},
	{regexp.MustCompile(`(?i)\broad\b|\bstreet\b|\bcity\b`), DepartmentGeneralServices, 10},
}

// ruleBackend is the deterministic fallback tier. It consults two independent
// priority tables and always produces a valid Result; classify never returns
// a non-nil error.
type ruleBackend struct{}

var _ backend = (*ruleBackend)(nil)

func (ruleBackend) name() string { return "rules" }

func (ruleBackend) classify(_ context.Context, text string, _ Channel) (Result, error) {
	return Result{
		Intent:     matchIntent(text),
		Department: matchDepartment(text),
		Summary:    truncateSummary(text),
		Method:     MethodFallback,
	}, nil
}

// matchIntent selects the highest-priority intent rule matching text. Equal
// priorities keep the earliest registered rule.
func matchIntent(text string) Intent {
	best := IntentUnclassified
	bestPriority := -1
	for _, r := range intentRules {
		if r.priority > bestPriority && r.pattern.MatchString(text) {
			best = r.intent
			bestPriority = r.priority
		}
	}
	return best
}

// matchDepartment selects the highest-priority department rule matching text.
func matchDepartment(text string) Department {
	best := DepartmentUnclassified
	bestPriority := -1
	for _, r := range departmentRules {
		if r.priority > bestPriority && r.pattern.MatchString(text) {
			best = r.department
			bestPriority = r.priority
		}
	}
	return best
}

// truncateSummary produces the fallback summary: the report text collapsed to
// a single line and cut at a word boundary within summaryMaxLen runes.
func truncateSummary(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= summaryMaxLen {
		return text
	}
	cut := summaryMaxLen
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = summaryMaxLen
	}
	return strings.TrimRight(string(runes[:cut]), " ,;") + "..."
}
