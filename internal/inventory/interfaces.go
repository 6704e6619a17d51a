package inventory

import (
	"context"

	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

// Repository defines persistence operations for per-store inventory records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error)
	Find(ctx context.Context, storeID, productID string) (*models.InventoryRecord, error)
	List(ctx context.Context, storeID string, params pagination.Params) ([]models.InventoryRecord, string, error)
	UpdateStock(ctx context.Context, storeID, productID string, updates map[string]any) error
	UpdateThresholds(ctx context.Context, storeID, productID string, critical, warning, reorder int) error
	CreateSale(ctx context.Context, sale *models.SaleTransaction) (*models.SaleTransaction, error)
}

// StockRepository owns the central warehouse stock and its atomic
// check-and-decrement allocation path.
type StockRepository interface {
	Find(ctx context.Context, productID string) (*models.WarehouseStockItem, error)
	Upsert(ctx context.Context, item *models.WarehouseStockItem) error
	AddStock(ctx context.Context, productID string, qty int) error
	Allocate(ctx context.Context, tx *gorm.DB, productID string, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID string, qty int) error
}
