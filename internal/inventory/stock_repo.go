package inventory

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
)

type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository builds the warehouse stock repository.
func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Find(ctx context.Context, productID string) (*models.WarehouseStockItem, error) {
	var item models.WarehouseStockItem
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse stock item not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse stock")
	}
	return &item, nil
}

func (r *stockRepository) Upsert(ctx context.Context, item *models.WarehouseStockItem) error {
	if item.AvailableStock < 0 || item.ReservedStock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock levels must be non-negative")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"available_stock", "reserved_stock"}),
	}).Create(item).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert warehouse stock")
	}
	return nil
}

func (r *stockRepository) AddStock(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE warehouse_stock_items
		SET available_stock = available_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock warehouse stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "warehouse stock item not found")
	}
	return nil
}

// Allocate reserves qty units of product stock in a single conditional update.
// The WHERE guard makes the check and the decrement one indivisible statement;
// a zero row count means insufficient stock and no state was touched.
func (r *stockRepository) Allocate(ctx context.Context, tx *gorm.DB, productID string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "allocation quantity must be positive")
	}
	conn := r.db
	if tx != nil {
		conn = tx
	}

	res := conn.WithContext(ctx).Exec(`
		UPDATE warehouse_stock_items
		SET available_stock = available_stock - ?,
			reserved_stock = reserved_stock + ?,
			last_allocation_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND available_stock >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "allocate warehouse stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient warehouse stock")
	}
	return nil
}

// Release returns reserved stock to the available pool, the inverse of Allocate.
func (r *stockRepository) Release(ctx context.Context, tx *gorm.DB, productID string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}
	conn := r.db
	if tx != nil {
		conn = tx
	}

	res := conn.WithContext(ctx).Exec(`
		UPDATE warehouse_stock_items
		SET available_stock = available_stock + ?,
			reserved_stock = reserved_stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND reserved_stock >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release warehouse stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "release exceeds reserved stock")
	}
	return nil
}
