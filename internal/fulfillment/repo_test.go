package fulfillment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:fulfillment_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.FulfillmentRequest{},
		&models.FulfillmentLineItem{},
		&models.Allocation{},
		&models.AllocationItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleRequest(windowKey string) *models.FulfillmentRequest {
	return &models.FulfillmentRequest{
		RequestID: "FUL_" + uuid.NewString()[:8],
		StoreID:   "STORE_001",
		WindowKey: windowKey,
		LineItems: []models.FulfillmentLineItem{
			{ProductID: "PROD_001", RequestedQty: 60, Volume: 120, Weight: 24, Priority: enums.PriorityCritical},
		},
	}
}

func TestCreateIsIdempotentPerStoreWindow(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	first, err := repo.Create(ctx, sampleRequest("1756450800"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Status != enums.RequestStatusPending {
		t.Fatalf("expected pending status, got %s", first.Status)
	}

	_, err = repo.Create(ctx, sampleRequest("1756450800"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate window, got %v", err)
	}

	// A different window is a fresh request.
	if _, err := repo.Create(ctx, sampleRequest("1756450900")); err != nil {
		t.Fatalf("create new window: %v", err)
	}
}

func TestFindPreloadsLineItems(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleRequest("1756450800"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	request, err := repo.Find(ctx, created.RequestID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(request.LineItems) != 1 || request.LineItems[0].ProductID != "PROD_001" {
		t.Fatalf("unexpected line items %+v", request.LineItems)
	}
}

func TestTransitionStatusIsConditional(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleRequest("1756450800"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.TransitionStatus(ctx, created.RequestID,
		[]enums.RequestStatus{enums.RequestStatusPending}, enums.RequestStatusProcessing, nil); err != nil {
		t.Fatalf("transition to processing: %v", err)
	}

	// pending -> processing again must conflict: the request moved on.
	err = repo.TransitionStatus(ctx, created.RequestID,
		[]enums.RequestStatus{enums.RequestStatusPending}, enums.RequestStatusProcessing, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	msg := "allocation failed"
	if err := repo.TransitionStatus(ctx, created.RequestID,
		[]enums.RequestStatus{enums.RequestStatusProcessing}, enums.RequestStatusError, &msg); err != nil {
		t.Fatalf("transition to error: %v", err)
	}

	request, err := repo.Find(ctx, created.RequestID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if request.Status != enums.RequestStatusError || request.ErrorMessage == nil || *request.ErrorMessage != msg {
		t.Fatalf("unexpected request state %+v", request)
	}
}

func TestCreateAllocationAppendsAuditTrail(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleRequest("1756450800"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reason := "insufficient warehouse stock"
	err = repo.CreateAllocation(ctx, &models.Allocation{
		AllocationID: "ALLOC_" + uuid.NewString()[:8],
		RequestID:    created.RequestID,
		Status:       enums.AllocationStatusPartial,
		Items: []models.AllocationItem{
			{ProductID: "PROD_001", RequestedQty: 60, AllocatedQty: 60},
			{ProductID: "PROD_002", RequestedQty: 10, AllocatedQty: 0, ErrorReason: &reason},
		},
	})
	if err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	var count int64
	if err := db.Model(&models.AllocationItem{}).Count(&count).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 allocation items, got %d", count)
	}
}
