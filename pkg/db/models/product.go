package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresvaldez/warehouse-backend/pkg/enums"
)

// Product is a catalog entry with the physical attributes the aggregation and
// capacity stages depend on.
type Product struct {
	ProductID  string                `gorm:"column:product_id;primaryKey"`
	Name       string                `gorm:"column:name;not null"`
	Category   enums.ProductCategory `gorm:"column:category;not null"`
	Price      decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	Weight     float64               `gorm:"column:weight;not null"`
	Length     float64               `gorm:"column:length"`
	Width      float64               `gorm:"column:width"`
	Height     float64               `gorm:"column:height"`
	Barcode    *string               `gorm:"column:barcode"`
	SupplierID *string               `gorm:"column:supplier_id"`
	IsActive   bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// Volume derives cubic volume from the stored dimensions. Zero when any
// dimension is missing.
func (p Product) Volume() float64 {
	if p.Length <= 0 || p.Width <= 0 || p.Height <= 0 {
		return 0
	}
	return p.Length * p.Width * p.Height
}

// HasDimensions reports whether all three dimensions are recorded.
func (p Product) HasDimensions() bool {
	return p.Length > 0 && p.Width > 0 && p.Height > 0
}
