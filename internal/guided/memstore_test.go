package guided_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/xpandai03/inbot-ai-sub000/internal/guided"
)

func TestMemStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := guided.NewMemStore(0)

	if _, err := store.Get(ctx, "+15550200"); !errors.Is(err, guided.ErrSessionNotFound) {
		t.Fatalf("Get on empty store: err = %v, want ErrSessionNotFound", err)
	}

	s := &guided.Session{
		Identity:  "+15550200",
		Issue:     "pothole",
		Asked:     map[guided.Field]bool{guided.FieldAddress: true},
		History:   []string{"there's a pothole"},
		CreatedAt: time.Now(),
	}
	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "+15550200")
	if err != nil {
		t.Fatal(err)
	}
	if got.Issue != "pothole" || !got.Asked[guided.FieldAddress] {
		t.Errorf("Get returned %+v, want stored session", got)
	}

	// Stored sessions are isolated from later mutation of the original.
	s.Issue = "changed"
	s.Asked[guided.FieldName] = true
	got2, err := store.Get(ctx, "+15550200")
	if err != nil {
		t.Fatal(err)
	}
	if got2.Issue != "pothole" || got2.Asked[guided.FieldName] {
		t.Error("store shares state with the caller's session value")
	}

	if err := store.Delete(ctx, "+15550200"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "+15550200"); !errors.Is(err, guided.ErrSessionNotFound) {
		t.Errorf("Get after Delete: err = %v, want ErrSessionNotFound", err)
	}
	if err := store.Delete(ctx, "+15550200"); err != nil {
		t.Errorf("Delete of absent identity: err = %v, want nil", err)
	}
}

func TestMemStoreEviction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := guided.NewMemStore(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := store.Put(ctx, &guided.Session{
			Identity:  fmt.Sprintf("+1555020%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	// A fourth identity evicts the oldest session.
	if err := store.Put(ctx, &guided.Session{Identity: "+15550299", CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 3 {
		t.Fatalf("Len = %d, want 3", store.Len())
	}
	if _, err := store.Get(ctx, "+15550200"); !errors.Is(err, guided.ErrSessionNotFound) {
		t.Errorf("oldest session still present after eviction")
	}
	if _, err := store.Get(ctx, "+15550299"); err != nil {
		t.Errorf("newest session missing after eviction: %v", err)
	}

	// Replacing an existing identity does not evict.
	if err := store.Put(ctx, &guided.Session{Identity: "+15550299", CreatedAt: base}); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 3 {
		t.Errorf("Len = %d after replace, want 3", store.Len())
	}
}

func TestMemStoreSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := guided.NewMemStore(0)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := store.Put(ctx, &guided.Session{
			Identity:  fmt.Sprintf("+1555030%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	removed, err := store.Sweep(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("Sweep removed %d, want 2", removed)
	}
	if store.Len() != 3 {
		t.Errorf("Len = %d after sweep, want 3", store.Len())
	}
}
