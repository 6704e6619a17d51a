package models

import (
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/enums"
)

// Allocation is the append-only audit record of a stock allocation attempt.
// Rows are written once and never updated.
type Allocation struct {
	AllocationID string                 `gorm:"column:allocation_id;primaryKey"`
	RequestID    string                 `gorm:"column:request_id;not null;index"`
	Status       enums.AllocationStatus `gorm:"column:status;not null"`
	Items        []AllocationItem       `gorm:"foreignKey:AllocationID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// AllocationItem records the per-product outcome: an allocated quantity, or
// the reason allocation failed.
type AllocationItem struct {
	ID           uint    `gorm:"column:id;primaryKey;autoIncrement"`
	AllocationID string  `gorm:"column:allocation_id;not null;index"`
	ProductID    string  `gorm:"column:product_id;not null"`
	RequestedQty int     `gorm:"column:requested_qty;not null"`
	AllocatedQty int     `gorm:"column:allocated_qty;not null;default:0"`
	ErrorReason  *string `gorm:"column:error_reason"`
}
