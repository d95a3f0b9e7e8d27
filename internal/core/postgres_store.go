package core

import (
	"context"

	"threadlab/internal/infra/persistence/postgres"
)

// NewPostgresStore opens the Postgres catalogue store at dsn.
func NewPostgresStore(ctx context.Context, dsn string) (*postgres.Store, error) {
	return postgres.NewStore(ctx, dsn)
}
