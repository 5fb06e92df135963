package classify

import "regexp"

// overrideRule pairs a strong keyword pattern with the intent/department it
// forces. The table is tuned for recall over precision and is intentionally
// separate from the fallback priority tables: it only rescues results where
// both fields are still unclassified.
type overrideRule struct {
	pattern    *regexp.Regexp
	intent     Intent
	department Department
}

var overrideRules = []overrideRule{
	{regexp.MustCompile(`(?i)\bpot\s?holes?\b`), IntentPothole, DepartmentPublicWorks},
	{regexp.MustCompile(`(?i)\bwater main\b`), IntentWaterLeak, DepartmentWaterUtilities},
	{regexp.MustCompile(`(?i)\bstreet\s?lights?\b`), IntentStreetlight, DepartmentPublicWorks},
	{regexp.MustCompile(`(?i)\bgraffiti\b`), IntentGraffiti, DepartmentCodeEnforcement},
	{regexp.MustCompile(`(?i)\bdead animal\b`), IntentAnimalControl, DepartmentAnimalServices},
}

// applyOverride rescues a fully unclassified result when a strong keyword
// matches the original text. The summary and method already on the result are
// preserved; only the intent/department pair is replaced. Results with either
// field classified are returned unchanged.
func applyOverride(text string, res Result) Result {
	if res.Intent != IntentUnclassified || res.Department != DepartmentUnclassified {
		return res
	}
	for _, r := range overrideRules {
		if r.pattern.MatchString(text) {
			res.Intent = r.intent
			res.Department = r.department
			return res
		}
	}
	return res
}
