package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"threadlab/internal/catalog"
	"threadlab/internal/infra/persistence/postgres/testutil"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreEnsuresCatalogTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS CATALOG") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected catalog DDL, got execs: %v", conn.Execs)
	}
}

func TestLoadEmptyStore(t *testing.T) {
	store, _ := openStub(t)
	_, ok, err := store.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if ok {
		t.Fatalf("expected empty store")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	want := catalog.Default()
	if err := store.SaveCatalog(ctx, want); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}
	if err := store.SaveCatalog(ctx, want); err != nil {
		t.Fatalf("second SaveCatalog: %v", err)
	}
	if got := len(conn.Tables["catalog"]); got != 7 {
		t.Fatalf("expected 7 bucket rows after upserts, got %d", got)
	}
	got, ok, err := store.LoadCatalog(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadCatalog: ok=%v err=%v", ok, err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("loaded catalog invalid: %v", err)
	}
	if len(got.States) != len(want.States) || got.RaceActors != want.RaceActors {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestNewStoreOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()
	if _, err := NewStore(context.Background(), "dsn"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestNewStorePingError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestSaveCatalogErrorPaths(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		arm    func(*testutil.StubConn)
		expect string
	}{
		{"begin", func(c *testutil.StubConn) { c.FailBegin = true }, "begin tx"},
		{"upsert", func(c *testutil.StubConn) { c.FailTables = map[string]bool{"catalog": true} }, "upsert states"},
		{"commit", func(c *testutil.StubConn) { c.FailCommit = true }, "commit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, conn := openStub(t)
			tc.arm(conn)
			err := store.SaveCatalog(ctx, catalog.Default())
			if err == nil || !strings.Contains(err.Error(), tc.expect) {
				t.Fatalf("expected %q error, got %v", tc.expect, err)
			}
		})
	}
}

func TestLoadCatalogErrorPaths(t *testing.T) {
	ctx := context.Background()

	store, conn := openStub(t)
	conn.FailTables = map[string]bool{"catalog": true}
	if _, _, err := store.LoadCatalog(ctx); err == nil {
		t.Fatalf("expected query error")
	}

	store, conn = openStub(t)
	conn.Tables["catalog"] = []map[string]any{{"bucket": "states", "payload": []byte("{not json")}}
	if _, _, err := store.LoadCatalog(ctx); err == nil || !strings.Contains(err.Error(), "decode states") {
		t.Fatalf("expected decode error, got %v", err)
	}

	store, conn = openStub(t)
	conn.RowsErr = errors.New("rows broke")
	conn.Tables["catalog"] = []map[string]any{{"bucket": "states", "payload": []byte("[]")}}
	if _, _, err := store.LoadCatalog(ctx); err == nil || !strings.Contains(err.Error(), "iterate catalog") {
		t.Fatalf("expected iterate error, got %v", err)
	}
}
