package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store] for tests
// and single-process deployments without a database.
type MemStore struct {
	mu          sync.RWMutex
	records     map[string]*Record
	evaluations map[string][]*Evaluation
	nextEvalID  int64
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		records:     make(map[string]*Record),
		evaluations: make(map[string][]*Evaluation),
	}
}

// Create implements [Store.Create].
func (m *MemStore) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = NewID()
	}
	if _, exists := m.records[r.ID]; exists {
		return fmt.Errorf("record: record %q already exists", r.ID)
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	clone := *r
	m.records[r.ID] = &clone
	return nil
}

// Get implements [Store.Get].
func (m *MemStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("record: get %q: %w", id, ErrNotFound)
	}
	clone := *r
	return &clone, nil
}

// Update implements [Store.Update].
func (m *MemStore) Update(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.records[r.ID]
	if !ok {
		return fmt.Errorf("record: update %q: %w", r.ID, ErrNotFound)
	}
	r.CreatedAt = stored.CreatedAt
	r.UpdatedAt = time.Now()

	clone := *r
	m.records[r.ID] = &clone
	return nil
}

// SetClassification implements [Store.SetClassification].
func (m *MemStore) SetClassification(_ context.Context, id string, res classify.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("record: set classification %q: %w", id, ErrNotFound)
	}
	r.Intent = res.Intent
	r.Department = res.Department
	r.Summary = res.Summary
	r.Method = res.Method
	r.UpdatedAt = time.Now()
	return nil
}

// AppendEvaluation implements [Store.AppendEvaluation].
func (m *MemStore) AppendEvaluation(_ context.Context, ev *Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[ev.RecordID]; !ok {
		return fmt.Errorf("record: append evaluation for %q: %w", ev.RecordID, ErrNotFound)
	}
	m.nextEvalID++
	ev.ID = m.nextEvalID
	ev.Status = EvaluationProposed
	ev.CreatedAt = time.Now()

	clone := *ev
	m.evaluations[ev.RecordID] = append(m.evaluations[ev.RecordID], &clone)
	return nil
}

// Evaluations implements [Store.Evaluations].
func (m *MemStore) Evaluations(_ context.Context, recordID string) ([]Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.evaluations[recordID]
	out := make([]Evaluation, len(evs))
	for i, ev := range evs {
		out[i] = *ev
	}
	return out, nil
}

// ApplyEvaluation implements [Store.ApplyEvaluation].
func (m *MemStore) ApplyEvaluation(_ context.Context, recordID string, evaluationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[recordID]
	if !ok {
		return fmt.Errorf("record: apply for %q: %w", recordID, ErrNotFound)
	}

	var target *Evaluation
	for _, ev := range m.evaluations[recordID] {
		if ev.ID == evaluationID {
			target = ev
			break
		}
	}
	if target == nil {
		return fmt.Errorf("record: apply evaluation %d: %w", evaluationID, ErrNotFound)
	}
	if target.Status == EvaluationApplied {
		return nil
	}

	applyFields(r, target)
	r.UpdatedAt = time.Now()
	target.Status = EvaluationApplied

	for _, ev := range m.evaluations[recordID] {
		if ev.ID != target.ID && ev.Status == EvaluationProposed {
			ev.Status = EvaluationSuperseded
		}
	}
	return nil
}
