package domain

import "context"

// CatalogStore is the minimal abstraction over durable catalogue backends.
// LoadCatalog reports ok=false when nothing has been stored yet.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (Catalog, bool, error)
	SaveCatalog(ctx context.Context, catalog Catalog) error
}
