package inventory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error) {
	if err := validateThresholds(record.CriticalThreshold, record.WarningThreshold, record.ReorderThreshold); err != nil {
		return nil, err
	}
	if record.CurrentStock < 0 || record.ReservedStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock levels must be non-negative")
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory record")
	}
	return record, nil
}

func (r *repository) Find(ctx context.Context, storeID, productID string) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, storeID string, params pagination.Params) ([]models.InventoryRecord, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Order("created_at ASC, product_id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}
	if cursor != nil {
		query = query.Where("(created_at, product_id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var records []models.InventoryRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory records")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ProductID})
	}
	return records, next, nil
}

func (r *repository) UpdateStock(ctx context.Context, storeID, productID string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update inventory stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
	}
	return nil
}

func (r *repository) UpdateThresholds(ctx context.Context, storeID, productID string, critical, warning, reorder int) error {
	if err := validateThresholds(critical, warning, reorder); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		Updates(map[string]any{
			"critical_threshold": critical,
			"warning_threshold":  warning,
			"reorder_threshold":  reorder,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update thresholds")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
	}
	return nil
}

func (r *repository) CreateSale(ctx context.Context, sale *models.SaleTransaction) (*models.SaleTransaction, error) {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale transaction")
	}
	return sale, nil
}

// validateThresholds enforces critical <= warning <= reorder before any write.
func validateThresholds(critical, warning, reorder int) error {
	if critical < 0 || warning < 0 || reorder < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "thresholds must be non-negative")
	}
	if critical > warning || warning > reorder {
		return pkgerrors.New(pkgerrors.CodeValidation, "thresholds must satisfy critical <= warning <= reorder")
	}
	return nil
}
