// Package reeval reruns the extraction and classification pipeline against a
// previously stored transcript and diffs the outcome against the currently
// persisted record. It never mutates stored data: the output is a proposal,
// and applying it is the record store's explicit idempotent transaction.
package reeval

import (
	"context"
	"strings"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
	"github.com/xpandai03/inbot-ai-sub000/internal/extract"
)

// Snapshot is the currently persisted view of a record, as far as
// re-evaluation cares about it.
type Snapshot struct {
	Name       string
	Address    string
	Intent     classify.Intent
	Department classify.Department
	Summary    string
}

// Candidate is the freshly computed proposal for a record. Field values carry
// the extraction defaults and the unclassified sentinels verbatim; the diff
// treats those as "nothing new found".
type Candidate struct {
	Name              string
	NameProvenance    string
	Address           string
	AddressProvenance string
	Intent            classify.Intent
	Department        classify.Department
	Summary           string
	Method            classify.Method
}

// FieldDiff compares one field between the stored record and the proposal.
type FieldDiff struct {
	Current   string
	Candidate string

	// Changed is true iff the candidate carries a real value (not a default
	// or unclassified sentinel) that differs from the current one.
	Changed bool
}

// DiffResult is the per-field comparison for the five re-evaluated fields.
type DiffResult struct {
	Name       FieldDiff
	Address    FieldDiff
	Intent     FieldDiff
	Department FieldDiff
	Summary    FieldDiff
}

// Any reports whether at least one field changed.
func (d DiffResult) Any() bool {
	return d.Name.Changed || d.Address.Changed || d.Intent.Changed ||
		d.Department.Changed || d.Summary.Changed
}

// Orchestrator reruns the first-pass pipeline over stored transcripts.
type Orchestrator struct {
	extractor  *extract.Extractor
	classifier *classify.Classifier
}

// New creates an Orchestrator over the given pipeline components.
func New(extractor *extract.Extractor, classifier *classify.Classifier) *Orchestrator {
	return &Orchestrator{extractor: extractor, classifier: classifier}
}

// ReEvaluate reruns extraction and classification for the stored transcript
// (plus structured utterances when the channel preserved them; pass nil
// otherwise) and returns the proposal with its diff against current.
//
// Address validation is relaxed when the currently stored address is missing,
// a default, or approximate, so a second pass can recover more than the
// first did.
func (o *Orchestrator) ReEvaluate(ctx context.Context, utterances []extract.Utterance, transcript string, channel classify.Channel, current Snapshot) (Candidate, DiffResult) {
	var addr extract.Result
	if addressNeedsRecovery(current.Address) {
		addr = o.extractor.ExtractAddressRelaxed(utterances, transcript)
	} else {
		addr = o.extractor.ExtractAddress(utterances, transcript)
	}

	knownAddress := addr.Value
	if addr.IsDefault() {
		knownAddress = ""
	}
	name := o.extractor.ExtractName(utterances, transcript, knownAddress)

	cls := o.classifier.Classify(ctx, transcript, channel)

	cand := Candidate{
		Name:              name.Value,
		NameProvenance:    name.Provenance,
		Address:           addr.Value,
		AddressProvenance: addr.Provenance,
		Intent:            cls.Intent,
		Department:        cls.Department,
		Summary:           cls.Summary,
		Method:            cls.Method,
	}
	return cand, ComputeDiff(current, cand)
}

// ComputeDiff compares a proposal against the stored snapshot field by field.
// A candidate field equal to its extraction default or unclassified sentinel
// proposes nothing and never marks a change.
func ComputeDiff(current Snapshot, cand Candidate) DiffResult {
	return DiffResult{
		Name:       diffField(current.Name, cand.Name, extract.DefaultName),
		Address:    diffField(current.Address, cand.Address, extract.DefaultAddress),
		Intent:     diffField(string(current.Intent), string(cand.Intent), string(classify.IntentUnclassified)),
		Department: diffField(string(current.Department), string(cand.Department), string(classify.DepartmentUnclassified)),
		Summary:    diffField(current.Summary, cand.Summary, ""),
	}
}

func diffField(current, candidate, sentinel string) FieldDiff {
	d := FieldDiff{Current: current, Candidate: candidate}
	if candidate == "" || (sentinel != "" && candidate == sentinel) {
		return d
	}
	d.Changed = candidate != current
	return d
}

// addressNeedsRecovery reports whether the stored address justifies the
// relaxed validation gate: missing, the default, or only approximate.
func addressNeedsRecovery(address string) bool {
	switch {
	case strings.TrimSpace(address) == "":
		return true
	case address == extract.DefaultAddress:
		return true
	case strings.HasSuffix(address, "(Approximate)"):
		return true
	}
	return false
}
