package interview

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRepoStoresCopies(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	s := sampleSession(time.Now().UTC())

	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Exchanges[0].Answer = "mutated"

	got, err := repo.Load(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Exchanges[0].Answer == "mutated" {
		t.Fatalf("repo shares memory with caller")
	}
	if _, err := repo.Load(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoListAndCleanup(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	for i, age := range []time.Duration{72 * time.Hour, time.Hour, 2 * time.Hour} {
		s := sampleSession(now.Add(-age))
		s.SessionID = []string{"a", "b", "c"}[i]
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	ids, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Fatalf("expected newest first, got %v", ids)
	}

	n, err := repo.CleanupOlderThan(ctx, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("CleanupOlderThan = %d, %v", n, err)
	}
	stats, _ := repo.Stats(ctx)
	if stats["total_sessions"] != 2 || stats["total_exchanges"] != 4 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	ok, _ := repo.Delete(ctx, "b")
	if !ok {
		t.Fatalf("expected delete to report found")
	}
	ok, _ = repo.Delete(ctx, "b")
	if ok {
		t.Fatalf("expected second delete to report missing")
	}
}
