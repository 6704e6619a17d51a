package catalog

import (
	"context"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

// Accessor is the read-only lookup surface the pipeline consumes. Missing
// records come back as typed not-found errors, never nil-nil.
type Accessor interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	GetStore(ctx context.Context, storeID string) (*models.Store, error)
}

// Repository extends the accessor with the catalog CRUD used by the API layer.
type Repository interface {
	Accessor
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	CreateStore(ctx context.Context, store *models.Store) (*models.Store, error)
	ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, string, error)
	ListStores(ctx context.Context, params pagination.Params) ([]models.Store, string, error)
}
