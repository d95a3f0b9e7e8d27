package core

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"threadlab/internal/catalog"
	"threadlab/internal/infra/persistence/memory"
	"threadlab/internal/infra/persistence/postgres"
	"threadlab/internal/infra/persistence/postgres/testutil"
	"threadlab/internal/infra/persistence/sqlite"
	"threadlab/pkg/domain"
)

func TestOpenCatalogStoreSelectsDriver(t *testing.T) {
	ctx := context.Background()

	t.Setenv("THREADLAB_STORAGE_DRIVER", "memory")
	store, err := OpenCatalogStore(ctx)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	t.Setenv("THREADLAB_STORAGE_DRIVER", "")
	t.Setenv("THREADLAB_SQLITE_PATH", filepath.Join(t.TempDir(), "catalog.db"))
	store, err = OpenCatalogStore(ctx)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sq, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite default, got %T", store)
	}
	_ = sq.Close()

	t.Setenv("THREADLAB_STORAGE_DRIVER", "cassandra")
	if _, err := OpenCatalogStore(ctx); err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestOpenCatalogStorePostgres(t *testing.T) {
	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	t.Setenv("THREADLAB_STORAGE_DRIVER", "postgres")
	t.Setenv("THREADLAB_POSTGRES_DSN", "postgres://stub/threadlab")
	store, err := OpenCatalogStore(context.Background())
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	c, err := LoadCatalog(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("seed through postgres: %v", err)
	}
	if len(c.States) != 5 {
		t.Fatalf("unexpected catalog %+v", c.States)
	}
}

func TestOpenCatalogStorePostgresPingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	t.Cleanup(postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil }))
	t.Setenv("THREADLAB_STORAGE_DRIVER", "postgres")
	store, err := OpenCatalogStore(context.Background())
	if err == nil || store != nil {
		t.Fatalf("expected ping failure with nil store, got %v %v", store, err)
	}
}

func TestLoadCatalogSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	logger := &captureLogger{}
	c, err := LoadCatalog(ctx, store, logger)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(c.Techniques) != 3 || !logger.has("i:seeded built-in catalog") {
		t.Fatalf("expected seeded catalog, logs %v", logger.entries)
	}
	stored, ok, err := store.LoadCatalog(ctx)
	if err != nil || !ok || len(stored.States) != 5 {
		t.Fatalf("seed not persisted: ok=%v err=%v", ok, err)
	}

	logger = &captureLogger{}
	if _, err := LoadCatalog(ctx, store, logger); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if logger.has("i:seeded built-in catalog") {
		t.Fatalf("populated store must not be reseeded")
	}
}

func TestLoadCatalogRejectsInvalidStoredCatalog(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	bad := catalog.Default()
	bad.LifecyclePath = append(bad.LifecyclePath, "zombie")
	if err := store.SaveCatalog(ctx, bad); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := LoadCatalog(ctx, store, nil); !errors.Is(err, domain.ErrInvalidCatalog) {
		t.Fatalf("expected ErrInvalidCatalog, got %v", err)
	}
}

type failingStore struct{ loadErr, saveErr error }

func (f failingStore) LoadCatalog(context.Context) (domain.Catalog, bool, error) {
	return domain.Catalog{}, false, f.loadErr
}

func (f failingStore) SaveCatalog(context.Context, domain.Catalog) error { return f.saveErr }

func TestLoadCatalogStoreErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := LoadCatalog(ctx, failingStore{loadErr: errors.New("disk")}, nil); err == nil || !strings.Contains(err.Error(), "load catalog") {
		t.Fatalf("expected load error, got %v", err)
	}
	if _, err := LoadCatalog(ctx, failingStore{saveErr: errors.New("disk")}, nil); err == nil || !strings.Contains(err.Error(), "seed catalog") {
		t.Fatalf("expected seed error, got %v", err)
	}
}
