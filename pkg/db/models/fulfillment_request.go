package models

import (
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/enums"
)

// FulfillmentRequest is the consolidated per-store demand built by the signal
// aggregator. Only the status and error columns mutate after creation.
type FulfillmentRequest struct {
	RequestID    string                `gorm:"column:request_id;primaryKey"`
	StoreID      string                `gorm:"column:store_id;not null;uniqueIndex:ux_fulfillment_requests_store_window,priority:1"`
	WindowKey    string                `gorm:"column:window_key;not null;uniqueIndex:ux_fulfillment_requests_store_window,priority:2"`
	Status       enums.RequestStatus   `gorm:"column:status;not null;default:pending"`
	ErrorMessage *string               `gorm:"column:error_message"`
	LineItems    []FulfillmentLineItem `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// FulfillmentLineItem is one product demand line inside a request.
type FulfillmentLineItem struct {
	ID           uint           `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID    string         `gorm:"column:request_id;not null;index"`
	ProductID    string         `gorm:"column:product_id;not null"`
	RequestedQty int            `gorm:"column:requested_qty;not null"`
	Volume       float64        `gorm:"column:volume;not null;default:0"`
	Weight       float64        `gorm:"column:weight;not null;default:0"`
	Priority     enums.Priority `gorm:"column:priority;not null"`
}
