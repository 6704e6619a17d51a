package models

import "time"

// WarehouseStockItem tracks central warehouse stock per product. Available
// stock only moves to reserved through the atomic allocation path; the sum of
// both columns is constant outside restock and write-off events.
type WarehouseStockItem struct {
	ProductID      string     `gorm:"column:product_id;primaryKey"`
	AvailableStock int        `gorm:"column:available_stock;not null;default:0"`
	ReservedStock  int        `gorm:"column:reserved_stock;not null;default:0"`
	LastAllocation *time.Time `gorm:"column:last_allocation_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
