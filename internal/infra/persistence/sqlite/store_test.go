package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"threadlab/internal/catalog"
	"threadlab/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	store, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, ok, err := store.LoadCatalog(ctx); err != nil || ok {
		t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
	}
	want := catalog.Default()
	want.SwitchActors = []string{"Worker 1", "Worker 2"}
	if err := store.SaveCatalog(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	got, ok, err := reloaded.LoadCatalog(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got.SwitchActors) != 2 || got.SwitchActors[1] != "Worker 2" {
		t.Fatalf("unexpected switch actors %v", got.SwitchActors)
	}
	if s, ok := got.State(domain.StateWaiting); !ok || s.Name != "Waiting/Blocked" {
		t.Fatalf("waiting state not restored: %+v", s)
	}
	if reloaded.Path() != path {
		t.Fatalf("path mismatch: %s", reloaded.Path())
	}
}

func TestSQLiteStoreUpsertKeepsOneRowPerBucket(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	for range 3 {
		if err := store.SaveCatalog(ctx, catalog.Default()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	var n int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM catalog`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 bucket rows, got %d", n)
	}
}

func TestSQLiteStoreDecodeError(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.DB().Exec(`INSERT INTO catalog(bucket,payload) VALUES('techniques', ?)`, []byte("{")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := store.LoadCatalog(ctx); err == nil {
		t.Fatalf("expected decode error")
	}
}
