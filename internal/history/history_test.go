package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates an in-memory journal for testing
func createTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		store := createTestStore(t)
		if store.db == nil {
			t.Error("store database is nil")
		}
	})

	t.Run("file-based database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.db")
		store, err := Open(path)
		if err != nil {
			t.Fatalf("failed to open file-based store: %v", err)
		}
		defer func() { _ = store.Close() }()

		// Reopening must not fail on the existing schema
		again, err := Open(path)
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		_ = again.Close()
	})
}

func TestRecordAndRecent(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	store.now = func() time.Time { return base }

	batch := NewBatchID()
	entries := []Entry{
		{Batch: batch, Endpoint: "lastfm", Artist: "A", Track: "One", Duration: 200 * time.Second, PlayedAt: base, Outcome: OutcomeAccepted},
		{Batch: batch, Endpoint: "librefm", Artist: "A", Track: "One", PlayedAt: base, Outcome: OutcomeRetry, Error: "audioscrobbler: error 16"},
		{Batch: batch, Endpoint: "lastfm", Artist: "B", Track: "Two", PlayedAt: base.Add(time.Minute), Outcome: OutcomeIgnored},
	}
	if err := store.Record(ctx, entries...); err != nil {
		t.Fatalf("failed to record entries: %v", err)
	}

	all, err := store.Recent(ctx, Query{})
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Track != "Two" {
		t.Errorf("expected newest play first, got %s", all[0].Track)
	}
	for _, e := range all {
		if e.ID == "" {
			t.Error("expected generated id")
		}
		if e.Batch != batch {
			t.Errorf("expected batch %s, got %s", batch, e.Batch)
		}
	}

	retries, err := store.Recent(ctx, Query{Outcome: OutcomeRetry})
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(retries) != 1 || retries[0].Error == "" || retries[0].Endpoint != "librefm" {
		t.Errorf("unexpected retry entries: %+v", retries)
	}

	limited, err := store.Recent(ctx, Query{Limit: 1, Endpoint: "lastfm"})
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 entry, got %d", len(limited))
	}
	if limited[0].Track != "Two" {
		t.Errorf("expected newest lastfm entry, got %+v", limited[0])
	}

	durations, err := store.Recent(ctx, Query{Endpoint: "lastfm", Outcome: OutcomeAccepted})
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(durations) != 1 || durations[0].Duration != 200*time.Second {
		t.Errorf("expected stored duration of 200s, got %+v", durations)
	}
}

func TestCount(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx,
		Entry{Endpoint: "lastfm", Artist: "A", Track: "T", Outcome: OutcomeAccepted},
		Entry{Endpoint: "lastfm", Artist: "A", Track: "U", Outcome: OutcomeAccepted},
		Entry{Endpoint: "lastfm", Artist: "A", Track: "V", Outcome: OutcomeDropped},
	); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	tests := []struct {
		outcome Outcome
		want    int
	}{
		{"", 3},
		{OutcomeAccepted, 2},
		{OutcomeDropped, 1},
		{OutcomeDisabled, 0},
	}
	for _, tt := range tests {
		got, err := store.Count(ctx, tt.outcome)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.outcome, got, tt.want)
		}
	}
}

func TestCleanup(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	if err := store.Record(ctx,
		Entry{Endpoint: "lastfm", Artist: "A", Track: "old", Outcome: OutcomeAccepted, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		Entry{Endpoint: "lastfm", Artist: "A", Track: "new", Outcome: OutcomeAccepted},
	); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	deleted, err := store.Cleanup(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("failed to cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	remaining, err := store.Recent(ctx, Query{})
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Track != "new" {
		t.Errorf("unexpected remaining entries: %+v", remaining)
	}
}

func TestRecordNothing(t *testing.T) {
	store := createTestStore(t)
	if err := store.Record(context.Background()); err != nil {
		t.Errorf("expected no error for empty record, got %v", err)
	}
}
