package threshold

import (
	"testing"
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
)

func record(critical, warning, reorder int) models.InventoryRecord {
	return models.InventoryRecord{
		StoreID:           "STORE_001",
		ProductID:         "PROD_001",
		CriticalThreshold: critical,
		WarningThreshold:  warning,
		ReorderThreshold:  reorder,
	}
}

func TestEvaluateCriticalCrossing(t *testing.T) {
	t.Parallel()

	m := Mutation{
		StoreID:       "STORE_001",
		ProductID:     "PROD_001",
		PreviousStock: 60,
		NewStock:      4,
		ChangeType:    enums.StockChangeSale,
	}

	signal, emitted := Evaluate(m, record(5, 15, 30), time.Now())
	if !emitted {
		t.Fatal("expected a signal")
	}
	if signal.Priority != enums.PriorityCritical {
		t.Fatalf("expected critical priority, got %s", signal.Priority)
	}
	if signal.RequestedQty != 60 {
		t.Fatalf("expected requested quantity 60, got %d", signal.RequestedQty)
	}
	if err := signal.Validate(); err != nil {
		t.Fatalf("signal should validate: %v", err)
	}
}

func TestEvaluateWarningTierRequestsDeficit(t *testing.T) {
	t.Parallel()

	m := Mutation{StoreID: "STORE_001", ProductID: "PROD_001", NewStock: 12, ChangeType: enums.StockChangeSale}
	signal, emitted := Evaluate(m, record(5, 15, 30), time.Now())
	if !emitted {
		t.Fatal("expected a signal")
	}
	if signal.Priority != enums.PriorityHigh {
		t.Fatalf("expected high priority, got %s", signal.Priority)
	}
	if signal.RequestedQty != 18 {
		t.Fatalf("expected deficit 18, got %d", signal.RequestedQty)
	}
}

func TestEvaluateReorderTierRequestsDeficit(t *testing.T) {
	t.Parallel()

	m := Mutation{StoreID: "STORE_001", ProductID: "PROD_001", NewStock: 28, ChangeType: enums.StockChangeAdjustment}
	signal, emitted := Evaluate(m, record(5, 15, 30), time.Now())
	if !emitted {
		t.Fatal("expected a signal")
	}
	if signal.Priority != enums.PriorityMedium {
		t.Fatalf("expected medium priority, got %s", signal.Priority)
	}
	if signal.RequestedQty != 2 {
		t.Fatalf("expected deficit 2, got %d", signal.RequestedQty)
	}
}

func TestEvaluateDeficitNeverBelowOne(t *testing.T) {
	t.Parallel()

	m := Mutation{StoreID: "STORE_001", ProductID: "PROD_001", NewStock: 30, ChangeType: enums.StockChangeAdjustment}
	signal, emitted := Evaluate(m, record(5, 15, 30), time.Now())
	if !emitted {
		t.Fatal("expected a signal at exactly the reorder threshold")
	}
	if signal.RequestedQty != 1 {
		t.Fatalf("expected minimum quantity 1, got %d", signal.RequestedQty)
	}
}

func TestEvaluateAboveReorderEmitsNothing(t *testing.T) {
	t.Parallel()

	m := Mutation{StoreID: "STORE_001", ProductID: "PROD_001", NewStock: 31, ChangeType: enums.StockChangeRestock}
	if _, emitted := Evaluate(m, record(5, 15, 30), time.Now()); emitted {
		t.Fatal("expected no signal above the reorder threshold")
	}
}
