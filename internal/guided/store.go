package guided

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned by [Store.Get] when no live session exists
// for the identity.
var ErrSessionNotFound = errors.New("guided: session not found")

// Store persists live guided sessions keyed by caller identity. The engine is
// the only writer; implementations must be safe for concurrent use across
// identities. A production deployment can back this with a distributed cache;
// tests and single-process deployments use [MemStore].
type Store interface {
	// Get returns a copy of the session for identity, or
	// [ErrSessionNotFound].
	Get(ctx context.Context, identity string) (*Session, error)

	// Put stores a copy of the session, creating or replacing the entry for
	// its identity.
	Put(ctx context.Context, s *Session) error

	// Delete removes the session for identity. Deleting an absent identity
	// is not an error.
	Delete(ctx context.Context, identity string) error

	// Sweep removes every session created before cutoff and returns how many
	// were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
