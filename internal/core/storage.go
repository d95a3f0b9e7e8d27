package core

import (
	"context"
	"fmt"
	"os"

	"threadlab/internal/catalog"
	"threadlab/internal/infra/persistence/memory"
	"threadlab/pkg/domain"
)

// StorageDriver identifies a concrete catalogue store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenCatalogStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	THREADLAB_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	THREADLAB_SQLITE_PATH: path to sqlite file (default ./threadlab.db)
//	THREADLAB_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenCatalogStore(ctx context.Context) (domain.CatalogStore, error) {
	driver := os.Getenv("THREADLAB_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		s, err := NewSQLiteStore(os.Getenv("THREADLAB_SQLITE_PATH"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		ps, err := NewPostgresStore(ctx, os.Getenv("THREADLAB_POSTGRES_DSN"))
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// LoadCatalog returns the stored catalogue after validating it. An empty store
// is seeded with the built-in catalogue first.
func LoadCatalog(ctx context.Context, store domain.CatalogStore, logger Logger) (domain.Catalog, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	c, ok, err := store.LoadCatalog(ctx)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	if !ok {
		c = catalog.Default()
		if err := store.SaveCatalog(ctx, c); err != nil {
			return domain.Catalog{}, fmt.Errorf("seed catalog: %w", err)
		}
		logger.Info("seeded built-in catalog", "states", len(c.States), "techniques", len(c.Techniques))
	}
	if err := c.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}
