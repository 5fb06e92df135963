// Package guided implements the multi-turn SMS collection state machine.
//
// A guided session tracks, per caller identity, which of the three required
// report fields (issue, address, name) are known and which have been asked
// for, and drives follow-up questions until all three are present or the
// session is cancelled or expires. Sessions are order-agnostic: a caller can
// answer questions in any order, volunteer fields before being asked, and
// correct earlier answers — the last message always wins per field.
package guided

import (
	"time"
)

// State is the lifecycle state of a guided session. Only [StateCollecting]
// is ever persisted; the three terminal states are reported to the caller
// and the session is removed from the store.
type State string

const (
	// StateCollecting means at least one required field is still missing.
	StateCollecting State = "collecting"

	// StateComplete means all three fields are present. Terminal.
	StateComplete State = "complete"

	// StateCancelled means the caller sent an explicit stop keyword. Terminal.
	StateCancelled State = "cancelled"

	// StateExpired means the session outlived its TTL. Terminal; the caller
	// of the engine decides whether to salvage the partial fields.
	StateExpired State = "expired"
)

// Field identifies one of the three collected report fields.
type Field string

const (
	// FieldIssue is the free-text issue description.
	FieldIssue Field = "issue"

	// FieldAddress is the street address of the issue.
	FieldAddress Field = "address"

	// FieldName is the caller's name.
	FieldName Field = "name"
)

// askPriority is the fixed order in which missing fields are asked for.
var askPriority = []Field{FieldIssue, FieldAddress, FieldName}

// Session is the per-identity collection state. It is mutated only by the
// engine, under the engine's per-identity lock; stores hold copies.
type Session struct {
	// Identity is the normalized caller identity (phone number).
	Identity string

	// Name, Address, and Issue are the collected field values. Empty means
	// not yet known.
	Name    string
	Address string
	Issue   string

	// Asked records which fields have been asked for at least once.
	Asked map[Field]bool

	// LastAsked is the field the most recent outbound question asked for.
	// Lenient follow-up acceptance applies to this field only.
	LastAsked Field

	// History is the ordered list of inbound message bodies.
	History []string

	// MessageCount is len(History), tracked explicitly so callers can apply
	// a max-messages escalation policy without reading History.
	MessageCount int

	// CreatedAt is when the first message for this identity arrived.
	// Session age for TTL purposes is measured from here.
	CreatedAt time.Time

	// LastActivityAt is when the most recent message arrived.
	LastActivityAt time.Time
}

// newSession returns a collecting session for identity created at now.
func newSession(identity string, now time.Time) *Session {
	return &Session{
		Identity:       identity,
		Asked:          make(map[Field]bool),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// field returns the current value of f.
func (s *Session) field(f Field) string {
	switch f {
	case FieldName:
		return s.Name
	case FieldAddress:
		return s.Address
	case FieldIssue:
		return s.Issue
	}
	return ""
}

// setField sets the current value of f.
func (s *Session) setField(f Field, v string) {
	switch f {
	case FieldName:
		s.Name = v
	case FieldAddress:
		s.Address = v
	case FieldIssue:
		s.Issue = v
	}
}

// complete reports whether all three required fields are present.
func (s *Session) complete() bool {
	return s.Name != "" && s.Address != "" && s.Issue != ""
}

// nextAsk selects the field the next outbound question should ask for:
// the first missing field in priority order that has not been asked yet,
// or, when every missing field has already been asked, the first missing
// field in the same order (re-ask, unbounded until TTL or cancel).
func (s *Session) nextAsk() Field {
	for _, f := range askPriority {
		if s.field(f) == "" && !s.Asked[f] {
			return f
		}
	}
	for _, f := range askPriority {
		if s.field(f) == "" {
			return f
		}
	}
	return ""
}

// Clone returns a deep copy of s. Stores use it so callers never share the
// engine's mutable state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Asked = make(map[Field]bool, len(s.Asked))
	for k, v := range s.Asked {
		c.Asked[k] = v
	}
	c.History = append([]string(nil), s.History...)
	return &c
}
