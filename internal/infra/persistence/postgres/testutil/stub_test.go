package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBUpsertsAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	upsert := "INSERT INTO catalog(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"
	for _, payload := range []string{"old", "new"} {
		if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "states"}, {Value: payload}}); err != nil {
			t.Fatalf("ExecContext: %v", err)
		}
	}
	if got := len(conn.Tables["catalog"]); got != 1 {
		t.Fatalf("expected upsert to keep one row, got %d", got)
	}

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM catalog", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "states" || dest[1] != "new" {
		t.Fatalf("unexpected row values: %v", dest)
	}
}

func TestStubDBRejectsUnparseableSelect(t *testing.T) {
	_, conn := NewStubDB()
	if _, err := conn.QueryContext(context.Background(), "VACUUM", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
