// Package postgres provides a Postgres-backed catalogue store holding one JSONB
// payload per catalogue bucket.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"threadlab/internal/infra/persistence/memory"
	"threadlab/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.CatalogStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/threadlab?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists the lesson catalogue to Postgres.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a store using dsn (falls back to defaultDSN), pings the
// server and ensures the catalog table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureCatalogTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureCatalogTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS catalog (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure catalog table: %w", err)
	}
	return nil
}

// LoadCatalog reads every bucket; ok is false when the table is empty.
func (s *Store) LoadCatalog(ctx context.Context) (domain.Catalog, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM catalog`)
	if err != nil {
		return domain.Catalog{}, false, fmt.Errorf("select catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Catalog{}, false, fmt.Errorf("scan catalog: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return domain.Catalog{}, false, fmt.Errorf("iterate catalog: %w", err)
	}
	if len(payloads) == 0 {
		return domain.Catalog{}, false, nil
	}
	c, err := memory.DecodeBuckets(payloads)
	if err != nil {
		return domain.Catalog{}, false, err
	}
	return c, true, nil
}

// SaveCatalog upserts every bucket in one transaction.
func (s *Store) SaveCatalog(ctx context.Context, c domain.Catalog) error {
	encoded, err := memory.EncodeBuckets(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO catalog(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, encoded[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
