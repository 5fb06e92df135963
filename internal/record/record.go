// Package record persists structured service-request records and their
// append-only re-evaluation history.
//
// A record is created on the response-critical path with whatever extraction
// produced; classification results are written back asynchronously. A
// re-evaluation appends a proposal to the history without touching the
// record; applying a proposal is an explicit idempotent transaction that also
// marks earlier open proposals superseded.
package record

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
	"github.com/xpandai03/inbot-ai-sub000/internal/extract"
)

// ErrNotFound is returned when no record or evaluation matches the given ID.
var ErrNotFound = errors.New("record: not found")

// Record is one structured service request.
type Record struct {
	// ID uniquely identifies the record. Assigned by the store on create
	// when empty.
	ID string

	// Identity is the normalized caller identity (phone number).
	Identity string

	// Channel is the inbound transport that produced this record.
	Channel classify.Channel

	// Name and Address are the extracted entity values (or their defaults).
	Name    string
	Address string

	// NameProvenance and AddressProvenance record which pattern and source
	// produced each value, or "default".
	NameProvenance    string
	AddressProvenance string

	// Intent, Department, Summary, and Method are the classification
	// outcome. They are empty until the background classification writes
	// back.
	Intent     classify.Intent
	Department classify.Department
	Summary    string
	Method     classify.Method

	// Transcript is the raw source text the record was extracted from. It
	// is kept verbatim so re-evaluation can rerun the pipeline.
	Transcript string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EvaluationStatus is the lifecycle of one re-evaluation proposal.
type EvaluationStatus string

const (
	// EvaluationProposed is a freshly appended proposal, not yet applied.
	EvaluationProposed EvaluationStatus = "proposed"

	// EvaluationApplied means the proposal was applied to its record.
	EvaluationApplied EvaluationStatus = "applied"

	// EvaluationSuperseded means a later proposal was applied instead.
	EvaluationSuperseded EvaluationStatus = "superseded"
)

// Evaluation is one re-evaluation proposal for a record. History is
// append-only: proposals change status but are never deleted.
type Evaluation struct {
	// ID is assigned by the store on append.
	ID int64

	// RecordID is the record this proposal targets.
	RecordID string

	// Candidate field values. Extraction defaults and unclassified
	// sentinels mean "nothing new for this field" and are skipped on apply.
	Name       string
	Address    string
	Intent     classify.Intent
	Department classify.Department
	Summary    string
	Method     classify.Method

	// Changed reports whether the proposal differs from the record it was
	// computed against.
	Changed bool

	Status    EvaluationStatus
	CreatedAt time.Time
}

// Store persists records and their evaluation history.
type Store interface {
	// Create inserts a new record, assigning ID and timestamps.
	Create(ctx context.Context, r *Record) error

	// Get returns the record with the given ID, or [ErrNotFound].
	Get(ctx context.Context, id string) (*Record, error)

	// Update replaces the stored record's mutable fields. Returns
	// [ErrNotFound] when the record does not exist.
	Update(ctx context.Context, r *Record) error

	// SetClassification writes back an asynchronous classification result.
	SetClassification(ctx context.Context, id string, res classify.Result) error

	// AppendEvaluation appends a proposal to the record's history with
	// status [EvaluationProposed], assigning ID and CreatedAt.
	AppendEvaluation(ctx context.Context, ev *Evaluation) error

	// Evaluations returns the record's full history, oldest first.
	Evaluations(ctx context.Context, recordID string) ([]Evaluation, error)

	// ApplyEvaluation applies the identified proposal to its record,
	// skipping default-sentinel fields, marks it applied, and marks every
	// other open proposal for the record superseded. Applying an
	// already-applied proposal is a no-op; the whole operation runs in one
	// transaction and is idempotent.
	ApplyEvaluation(ctx context.Context, recordID string, evaluationID int64) error
}

// NewID returns a random 16-byte hex record identifier.
func NewID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("record: read random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

// applyFields copies an evaluation's real values onto a record, leaving
// fields with default sentinels untouched. Shared by both store
// implementations so apply semantics cannot drift.
func applyFields(r *Record, ev *Evaluation) {
	if ev.Name != "" && !isDefaultName(ev.Name) {
		r.Name = ev.Name
	}
	if ev.Address != "" && !isDefaultAddress(ev.Address) {
		r.Address = ev.Address
	}
	if ev.Intent != "" && ev.Intent != classify.IntentUnclassified {
		r.Intent = ev.Intent
	}
	if ev.Department != "" && ev.Department != classify.DepartmentUnclassified {
		r.Department = ev.Department
	}
	if ev.Summary != "" {
		r.Summary = ev.Summary
	}
	if ev.Method != "" {
		r.Method = ev.Method
	}
}

func isDefaultName(v string) bool { return v == extract.DefaultName }

func isDefaultAddress(v string) bool { return v == extract.DefaultAddress }
