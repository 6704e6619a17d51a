package threshold

import (
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog/payloads"
)

// Mutation is one inventory stock change evaluated against the item's thresholds.
type Mutation struct {
	StoreID       string
	ProductID     string
	PreviousStock int
	NewStock      int
	ChangeType    enums.StockChangeType
}

// Evaluate compares the mutated stock level against the record's thresholds and
// returns at most one restock signal. Critical crossings request twice the
// reorder threshold; the lower tiers request the deficit to the reorder
// threshold, never less than one unit.
func Evaluate(m Mutation, record models.InventoryRecord, now time.Time) (*payloads.RestockSignal, bool) {
	if m.NewStock > record.ReorderThreshold {
		return nil, false
	}

	signal := payloads.RestockSignal{
		StoreID:   m.StoreID,
		ProductID: m.ProductID,
		EmittedAt: now.UTC(),
	}

	switch {
	case m.NewStock <= record.CriticalThreshold:
		signal.Priority = enums.PriorityCritical
		signal.RequestedQty = 2 * record.ReorderThreshold
		signal.Reason = "stock at or below critical threshold"
	case m.NewStock <= record.WarningThreshold:
		signal.Priority = enums.PriorityHigh
		signal.RequestedQty = deficit(record.ReorderThreshold, m.NewStock)
		signal.Reason = "stock at or below warning threshold"
	default:
		signal.Priority = enums.PriorityMedium
		signal.RequestedQty = deficit(record.ReorderThreshold, m.NewStock)
		signal.Reason = "stock at or below reorder threshold"
	}

	return &signal, true
}

func deficit(reorderThreshold, newStock int) int {
	qty := reorderThreshold - newStock
	if qty < 1 {
		return 1
	}
	return qty
}
