package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog/payloads"
)

// CreateRecordInput seeds a per-store inventory record.
type CreateRecordInput struct {
	StoreID           string
	ProductID         string
	CurrentStock      int
	ReservedStock     int
	CriticalThreshold int
	WarningThreshold  int
	ReorderThreshold  int
	MaxCapacity       int
	Location          *string
}

// MutationInput is one stock change applied to an inventory record. Quantity
// is an absolute amount for sale/restock/damage/expired and a signed delta for
// adjustment.
type MutationInput struct {
	StoreID    string
	ProductID  string
	Quantity   int
	ChangeType enums.StockChangeType
}

// MutationResult reports the stock movement and any restock signal it triggered.
type MutationResult struct {
	Record        *models.InventoryRecord
	PreviousStock int
	NewStock      int
	Signal        *payloads.RestockSignal
}

// SaleInput records a point-of-sale transaction that drives a sale mutation.
type SaleInput struct {
	StoreID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Tax       decimal.Decimal
	CashierID *string
	Timestamp time.Time
}
