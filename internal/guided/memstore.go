package guided

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a [MemStore] when no limit is configured.
const DefaultMaxEntries = 10_000

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store] with a
// max-entries bound. When the bound is reached, the oldest session (by
// creation time) is evicted to make room. Combined with the engine's periodic
// sweep this keeps memory bounded even under identity churn.
type MemStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxEntries int
}

// NewMemStore returns a [MemStore] holding at most maxEntries sessions.
// maxEntries <= 0 means [DefaultMaxEntries].
func NewMemStore(maxEntries int) *MemStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemStore{
		sessions:   make(map[string]*Session),
		maxEntries: maxEntries,
	}
}

// Get implements [Store.Get].
func (m *MemStore) Get(_ context.Context, identity string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[identity]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Put implements [Store.Put].
func (m *MemStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.Identity]; !exists && len(m.sessions) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.sessions[s.Identity] = s.Clone()
	return nil
}

// Delete implements [Store.Delete].
func (m *MemStore) Delete(_ context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, identity)
	return nil
}

// Sweep implements [Store.Sweep].
func (m *MemStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live sessions.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// evictOldestLocked removes the session with the earliest creation time.
// Caller must hold m.mu.
func (m *MemStore) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range m.sessions {
		if oldestID == "" || s.CreatedAt.Before(oldest) {
			oldestID = id
			oldest = s.CreatedAt
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
	}
}
