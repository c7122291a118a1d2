package roomstore

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "roomstore.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, newTestSQLiteStore)
}

func TestSQLiteStoreUniqueUserAndKind(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.UpsertEntry(ctx, testBinding("42", "!room:example.com")); err != nil {
		t.Fatalf("UpsertEntry() error = %v", err)
	}

	// A second binding for the same external user and kind under a new
	// remote ID must be rejected, not silently duplicated.
	dup := testBinding("42", "!other:example.com")
	dup.Remote.RemoteID = "timeline_42_dup"
	if err := store.UpsertEntry(ctx, dup); err == nil {
		t.Fatal("expected a constraint error for a duplicate user binding")
	}

	entries, err := store.ListEntries(ctx)
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected a single binding, got %d", len(entries))
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "roomstore.db")

	store, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := store.UpsertEntry(ctx, testBinding("42", "!room:example.com")); err != nil {
		t.Fatalf("UpsertEntry() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetEntryByRemoteID(ctx, "timeline_42")
	if err != nil {
		t.Fatalf("GetEntryByRemoteID() error = %v", err)
	}
	if got == nil || got.RoomID != "!room:example.com" {
		t.Errorf("expected the binding to survive reopen, got %+v", got)
	}
}
