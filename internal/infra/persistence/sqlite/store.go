// Package sqlite provides a catalogue store persisted to a single SQLite table
// of JSON buckets.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"threadlab/internal/infra/persistence/memory"
	"threadlab/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.CatalogStore = (*Store)(nil)

// Store persists the lesson catalogue to SQLite.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path and ensures the catalog table.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "threadlab.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS catalog (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog table: %w", err)
	}
	return &Store{db: db, path: path}, nil
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
			return domain.Catalog{}, false, fmt.Errorf("scan: %w", err)
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
func (s *Store) SaveCatalog(ctx context.Context, c domain.Catalog) (retErr error) {
	encoded, err := memory.EncodeBuckets(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO catalog(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, encoded[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
