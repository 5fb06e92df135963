// Package extract converts noisy free-text transcripts into structured caller
// fields: the caller's name and street address.
//
// The pipeline runs in fixed stages:
//
//  1. Normalization ([Normalize]) — filler words, stutters, and ellipses are
//     stripped so that downstream patterns see clean token sequences.
//  2. Candidate generation — every registered pattern is run over both the
//     structured caller-utterance view and the raw transcript fallback view;
//     every match becomes a [Candidate]. Candidates are never deduplicated by
//     pattern precedence; all of them survive to scoring.
//  3. Scoring — each candidate receives an adjusted score built from its
//     pattern's base score plus structural bonuses and penalties. Candidates
//     that look like organizations rather than people are disqualified
//     outright.
//  4. Selection and validation — candidates are sorted by adjusted score
//     (stable, ties broken by generation order) and the first one that passes
//     the hard structural gate wins. Address candidates pass through the
//     spoken-number normalizer before validation.
//
// Extraction is best-effort by design: when no candidate survives, the
// documented defaults [DefaultName] and [DefaultAddress] are returned with
// provenance "default". No stage ever returns an error — bad input degrades
// to defaults, never to a failure on the caller-facing path.
//
// All exported types and functions are safe for concurrent use; an
// [Extractor] is read-only after construction.
package extract

import (
	"regexp"
	"strings"
)

// Entity defaults returned when no candidate survives validation.
const (
	// DefaultName is the name placeholder when extraction finds nothing usable.
	DefaultName = "Unknown Caller"

	// DefaultAddress is the address placeholder when extraction finds nothing usable.
	DefaultAddress = "Not provided"
)

// ProvenanceDefault is the provenance value attached to default results.
const ProvenanceDefault = "default"

// Role identifies who produced an utterance.
type Role string

const (
	// RoleCaller marks text spoken or sent by the caller.
	RoleCaller Role = "caller"

	// RoleSystem marks text produced by the system (prompts, questions).
	RoleSystem Role = "system"
)

// Utterance is a single turn in a conversation, ordered by Position.
// Utterances are immutable once received.
type Utterance struct {
	Role     Role
	Text     string
	Position int
}

// Source identifies which view of the conversation a candidate came from.
type Source string

const (
	// SourceMessages means the candidate matched inside a structured caller utterance.
	SourceMessages Source = "messages"

	// SourceTranscript means the candidate matched in the raw transcript fallback view.
	SourceTranscript Source = "transcript"
)

// Candidate is a single pattern match for an entity type, before scoring and
// validation. Candidates are ephemeral: they are produced and discarded within
// one extraction call and never persisted.
type Candidate struct {
	// Value is the captured entity text.
	Value string

	// PatternID identifies the registry entry that produced this match.
	PatternID string

	// BaseScore is the pattern's registered confidence before adjustments.
	BaseScore int

	// AdjustedScore is BaseScore plus all scoring adjustments.
	AdjustedScore int

	// Disqualified marks a candidate whose score was forced to negative
	// infinity; it can never be selected regardless of other bonuses.
	Disqualified bool

	// Source records which conversation view produced the match.
	Source Source

	// SourceIndex is the utterance position (for SourceMessages) or a
	// character-offset bucket (for SourceTranscript) of the match.
	SourceIndex int

	// RawMatch is the full text matched by the pattern, including any
	// surrounding phrase the capture group excluded.
	RawMatch string

	// positionRatio is how far into the conversation the match occurred,
	// in [0,1]. Later statements are treated as corrections and earn bonuses.
	positionRatio float64

	// seq is the generation sequence number. It is the documented tie-break
	// for equal adjusted scores: earlier-generated candidates sort first.
	seq int
}

// Result is the outcome of one extraction call for one entity type.
// At most one Result per entity type is produced per call.
type Result struct {
	// Value is the selected entity text, or the entity default.
	Value string

	// Provenance encodes source and pattern id ("messages:name_intro"), or
	// [ProvenanceDefault] when no candidate survived validation.
	Provenance string
}

// IsDefault reports whether r carries the fallback default rather than an
// extracted value.
func (r Result) IsDefault() bool {
	return r.Provenance == ProvenanceDefault
}

// pattern is one registry entry: a compiled expression with its identifier and
// base confidence. Registration order is significant — it is the documented
// tie-break for equal-priority matches.
type pattern struct {
	re        *regexp.Regexp
	id        string
	baseScore int

	// approximate marks contextual/relative address forms. Their values are
	// tagged with an "(Approximate)" suffix to signal lower confidence
	// downstream.
	approximate bool
}

// Extractor runs the full candidate → score → validate pipeline for names and
// addresses. The zero value is not usable; construct with [NewExtractor].
type Extractor struct {
	namePatterns    []pattern
	addressPatterns []pattern
}

// NewExtractor returns an [Extractor] with the built-in pattern registries.
func NewExtractor() *Extractor {
	return &Extractor{
		namePatterns:    namePatterns(),
		addressPatterns: addressPatterns(),
	}
}

// ExtractName selects the best caller-name candidate from the structured
// utterances and the raw transcript fallback view.
//
// knownAddress, when non-empty, enables cross-field arbitration: name
// candidates that are fragments of the address ("Five Three La" against
// "53 La Cienega Boulevard") are disqualified. Pass the already-selected
// address value, or "" when none is known.
//
// When nothing survives validation the result is [DefaultName] with
// provenance [ProvenanceDefault].
func (e *Extractor) ExtractName(utterances []Utterance, transcript string, knownAddress string) Result {
	cands := e.generate(e.namePatterns, utterances, transcript)
	for i := range cands {
		scoreName(&cands[i], knownAddress)
	}
	sortCandidates(cands)

	for _, c := range cands {
		if c.Disqualified {
			continue
		}
		if validateName(c.Value) {
			return Result{
				Value:      strings.TrimSpace(c.Value),
				Provenance: string(c.Source) + ":" + c.PatternID,
			}
		}
	}
	return Result{Value: DefaultName, Provenance: ProvenanceDefault}
}

// ExtractAddress selects the best street-address candidate from the structured
// utterances and the raw transcript fallback view. The selected candidate's
// leading spoken-number words are converted to digits before validation
// ("five four eight four Oak Drive" → "5484 Oak Drive").
//
// When nothing survives validation the result is [DefaultAddress] with
// provenance [ProvenanceDefault].
func (e *Extractor) ExtractAddress(utterances []Utterance, transcript string) Result {
	return e.extractAddress(utterances, transcript, false)
}

// ExtractAddressRelaxed behaves like [ExtractAddress] but applies the relaxed
// structural gate used by re-evaluation: the leading-token requirement is
// dropped so that partial or approximate addresses can be recovered on a
// second pass over a stored transcript.
func (e *Extractor) ExtractAddressRelaxed(utterances []Utterance, transcript string) Result {
	return e.extractAddress(utterances, transcript, true)
}

func (e *Extractor) extractAddress(utterances []Utterance, transcript string, relaxed bool) Result {
	cands := e.generate(e.addressPatterns, utterances, transcript)
	for i := range cands {
		scoreAddress(&cands[i])
	}
	sortCandidates(cands)

	for _, c := range cands {
		if c.Disqualified {
			continue
		}
		value := NormalizeSpokenNumbers(strings.TrimSpace(c.Value))
		if validateAddress(value, relaxed) {
			return Result{
				Value:      value,
				Provenance: string(c.Source) + ":" + c.PatternID,
			}
		}
	}
	return Result{Value: DefaultAddress, Provenance: ProvenanceDefault}
}

// generate runs every registered pattern over the normalized caller utterances
// and over both the normalized and raw transcript fallback views. Every match
// across every pattern becomes one candidate.
func (e *Extractor) generate(patterns []pattern, utterances []Utterance, transcript string) []Candidate {
	var cands []Candidate
	seq := 0

	total := len(utterances)
	for _, u := range utterances {
		if u.Role != RoleCaller {
			continue
		}
		text := Normalize(u.Text)
		for _, p := range patterns {
			for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
				value := captured(text, m)
				if value == "" {
					continue
				}
				if p.approximate {
					value += " (Approximate)"
				}
				ratio := 0.0
				if total > 1 {
					ratio = float64(u.Position) / float64(total-1)
				}
				cands = append(cands, Candidate{
					Value:         value,
					PatternID:     p.id,
					BaseScore:     p.baseScore,
					Source:        SourceMessages,
					SourceIndex:   u.Position,
					RawMatch:      text[m[0]:m[1]],
					positionRatio: ratio,
					seq:           seq,
				})
				seq++
			}
		}
	}

	// Transcript fallback view: both normalized and raw text, so that
	// patterns sensitive to fillers still get a chance on the original.
	for _, text := range []string{Normalize(transcript), transcript} {
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, p := range patterns {
			for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
				value := captured(text, m)
				if value == "" {
					continue
				}
				if p.approximate {
					value += " (Approximate)"
				}
				ratio := 0.0
				if len(text) > 0 {
					ratio = float64(m[0]) / float64(len(text))
				}
				cands = append(cands, Candidate{
					Value:         value,
					PatternID:     p.id,
					BaseScore:     p.baseScore,
					Source:        SourceTranscript,
					SourceIndex:   m[0],
					RawMatch:      text[m[0]:m[1]],
					positionRatio: ratio,
					seq:           seq,
				})
				seq++
			}
		}
	}

	return cands
}

// captured returns the first capture group of a FindAllStringSubmatchIndex
// match, or the whole match when the pattern has no groups.
func captured(text string, m []int) string {
	if len(m) >= 4 && m[2] >= 0 {
		return strings.TrimSpace(text[m[2]:m[3]])
	}
	return strings.TrimSpace(text[m[0]:m[1]])
}
