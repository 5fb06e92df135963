// Package classify assigns an intent category and responsible department to
// free-text issue reports using a two-tier strategy: a primary LLM-backed
// classifier bounded by a deadline, and a deterministic rule-table fallback
// that never fails. Results always stay inside two closed category
// vocabularies; anything a backend produces outside them is coerced to the
// unclassified sentinel.
package classify

// Intent is the closed vocabulary of issue categories a report can be
// assigned. Free text never appears here; unknown values map to
// [IntentUnclassified].
type Intent string

const (
	// IntentPothole represents road surface damage reports.
	IntentPothole Intent = "pothole"

	// IntentStreetlight represents broken or flickering streetlight reports.
	IntentStreetlight Intent = "streetlight"

	// IntentTrashCollection represents missed pickup or overflowing bin reports.
	IntentTrashCollection Intent = "trash_collection"

	// IntentWaterLeak represents water main breaks, leaks, and flooding.
	IntentWaterLeak Intent = "water_leak"

	// IntentNoiseComplaint represents noise disturbance reports.
	IntentNoiseComplaint Intent = "noise_complaint"

	// IntentGraffiti represents graffiti and vandalism reports.
	IntentGraffiti Intent = "graffiti"

	// IntentParkingViolation represents illegally or abandoned parked vehicles.
	IntentParkingViolation Intent = "parking_violation"

	// IntentAnimalControl represents stray, dead, or dangerous animal reports.
	IntentAnimalControl Intent = "animal_control"

	// IntentTreeHazard represents fallen limbs and hazardous tree reports.
	IntentTreeHazard Intent = "tree_hazard"

	// IntentSidewalkDamage represents cracked or uplifted sidewalk reports.
	IntentSidewalkDamage Intent = "sidewalk_damage"

	// IntentOther represents a recognised issue that fits no specific category.
	IntentOther Intent = "other"

	// IntentUnclassified is the sentinel for text no backend could place.
	IntentUnclassified Intent = "unclassified"
)

// IsValid reports whether i is a member of the closed intent vocabulary.
func (i Intent) IsValid() bool {
	switch i {
	case IntentPothole, IntentStreetlight, IntentTrashCollection,
		IntentWaterLeak, IntentNoiseComplaint, IntentGraffiti,
		IntentParkingViolation, IntentAnimalControl, IntentTreeHazard,
		IntentSidewalkDamage, IntentOther, IntentUnclassified:
		return true
	}
	return false
}

// Department is the closed vocabulary of municipal departments a report can
// be routed to.
type Department string

const (
	// DepartmentPublicWorks handles roads, streetlights, and sidewalks.
	DepartmentPublicWorks Department = "public_works"

	// DepartmentSanitation handles trash and recycling collection.
	DepartmentSanitation Department = "sanitation"

	// DepartmentWaterUtilities handles water supply and drainage.
	DepartmentWaterUtilities Department = "water_utilities"

	// DepartmentTransportation handles traffic, parking, and transit.
	DepartmentTransportation Department = "transportation"

	// DepartmentParksRecreation handles parks, trees, and public grounds.
	DepartmentParksRecreation Department = "parks_recreation"

	// DepartmentAnimalServices handles animal control and welfare.
	DepartmentAnimalServices Department = "animal_services"

	// DepartmentCodeEnforcement handles ordinance and nuisance violations.
	DepartmentCodeEnforcement Department = "code_enforcement"

	// DepartmentGeneralServices is the catch-all routing target.
	DepartmentGeneralServices Department = "general_services"

	// DepartmentUnclassified is the sentinel for unroutable reports.
	DepartmentUnclassified Department = "unclassified"
)

// IsValid reports whether d is a member of the closed department vocabulary.
func (d Department) IsValid() bool {
	switch d {
	case DepartmentPublicWorks, DepartmentSanitation, DepartmentWaterUtilities,
		DepartmentTransportation, DepartmentParksRecreation,
		DepartmentAnimalServices, DepartmentCodeEnforcement,
		DepartmentGeneralServices, DepartmentUnclassified:
		return true
	}
	return false
}

// Channel identifies which inbound transport produced the text being
// classified.
type Channel string

const (
	// ChannelVoice marks text originating from a voice-call transcript.
	ChannelVoice Channel = "voice"

	// ChannelSMS marks text originating from an SMS conversation.
	ChannelSMS Channel = "sms"
)

// Method records which classification tier produced a result.
type Method string

const (
	// MethodPrimary means the external LLM backend produced the result.
	MethodPrimary Method = "primary"

	// MethodFallback means the deterministic rule tables produced the result.
	MethodFallback Method = "fallback"
)

// Result is the outcome of classifying one piece of text. Intent and
// Department are always valid members of their vocabularies.
type Result struct {
	// Intent is the assigned issue category.
	Intent Intent

	// Department is the department the report routes to.
	Department Department

	// Summary is a one-sentence description of the issue.
	Summary string

	// Method records whether the primary or fallback tier produced this
	// result. The strong-keyword override does not change Method.
	Method Method
}
