package core

import "threadlab/internal/infra/persistence/sqlite"

// NewSQLiteStore opens the SQLite catalogue store at path (empty for the default file).
func NewSQLiteStore(path string) (*sqlite.Store, error) {
	return sqlite.NewStore(path)
}
