package models

import "time"

// InventoryRecord tracks per-store per-product stock levels and thresholds.
// Rows are never deleted, only updated.
type InventoryRecord struct {
	StoreID           string     `gorm:"column:store_id;primaryKey"`
	ProductID         string     `gorm:"column:product_id;primaryKey"`
	CurrentStock      int        `gorm:"column:current_stock;not null;default:0"`
	ReservedStock     int        `gorm:"column:reserved_stock;not null;default:0"`
	ReorderThreshold  int        `gorm:"column:reorder_threshold;not null"`
	WarningThreshold  int        `gorm:"column:warning_threshold;not null"`
	CriticalThreshold int        `gorm:"column:critical_threshold;not null"`
	MaxCapacity       int        `gorm:"column:max_capacity;not null"`
	Location          *string    `gorm:"column:location"`
	LastRestockAt     *time.Time `gorm:"column:last_restock_at"`
	LastSaleAt        *time.Time `gorm:"column:last_sale_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableStock is current minus reserved, floored at zero.
func (r InventoryRecord) AvailableStock() int {
	if avail := r.CurrentStock - r.ReservedStock; avail > 0 {
		return avail
	}
	return 0
}
