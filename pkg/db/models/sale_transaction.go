package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleTransaction records a point-of-sale event that drives an inventory
// mutation.
type SaleTransaction struct {
	TransactionID string          `gorm:"column:transaction_id;primaryKey"`
	StoreID       string          `gorm:"column:store_id;not null;index"`
	ProductID     string          `gorm:"column:product_id;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Discount      decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Tax           decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CashierID     *string         `gorm:"column:cashier_id"`
	Timestamp     time.Time       `gorm:"column:timestamp;not null"`
}
