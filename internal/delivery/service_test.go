package delivery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/internal/fulfillment"
	"github.com/andresvaldez/warehouse-backend/internal/vehicles"
	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/metrics"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:delivery_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.FulfillmentRequest{}, &models.FulfillmentLineItem{},
		&models.Vehicle{},
		&models.DeliveryPlanItem{}, &models.DeliveryPlanVehicle{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// The plans table carries a postgres array column, which sqlite cannot
	// express through AutoMigrate; pq.StringArray round-trips through text.
	if err := db.Exec(`
		CREATE TABLE delivery_plans (
			plan_id TEXT PRIMARY KEY,
			store_destinations TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			approved_by TEXT NOT NULL,
			total_weight REAL NOT NULL DEFAULT 0,
			total_volume REAL NOT NULL DEFAULT 0,
			execution_notes TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		t.Fatalf("create plans table: %v", err)
	}
	return db
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	plans    Repository
	fleet    vehicles.Repository
	requests fulfillment.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	plans := NewRepository(db)
	fleet := vehicles.NewRepository(db)
	requests := fulfillment.NewRepository(db)
	svc := NewService(gormTxRunner{db: db}, plans, fleet, requests,
		logger.New(logger.Options{ServiceName: "delivery-test"}),
		metrics.NewPipelineMetrics(nil))
	return &fixture{svc: svc, db: db, plans: plans, fleet: fleet, requests: requests}
}

func seedVehicle(t *testing.T, f *fixture, vehicleID string, status enums.VehicleStatus) {
	t.Helper()
	vehicle := &models.Vehicle{
		VehicleID:         vehicleID,
		LicensePlate:      "PLT-" + vehicleID,
		VehicleType:       "truck",
		MaxWeightCapacity: 1000,
		MaxVolumeCapacity: 100,
		Status:            status,
	}
	if _, err := f.fleet.Create(context.Background(), vehicle); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
}

func seedAllocatedRequest(t *testing.T, f *fixture, requestID string) {
	t.Helper()
	request := &models.FulfillmentRequest{
		RequestID: requestID,
		StoreID:   "STORE_001",
		WindowKey: requestID,
		Status:    enums.RequestStatusAllocated,
		LineItems: []models.FulfillmentLineItem{
			{ProductID: "PROD_001", RequestedQty: 10, Priority: enums.PriorityHigh},
		},
	}
	if _, err := f.requests.Create(context.Background(), request); err != nil {
		t.Fatalf("seed request: %v", err)
	}
}

func executeInput(requestID, vehicleID string) ExecuteInput {
	return ExecuteInput{
		RequestIDs: []string{requestID},
		Items: []ItemInput{
			{StoreID: "STORE_001", ProductID: "PROD_001", Quantity: 10, Weight: 40, Volume: 20},
		},
		Assignments: []vehicles.Assignment{
			{VehicleID: vehicleID, AssignedVolume: 20, AssignedWeight: 40},
		},
		ApprovedBy: "ops@warehouse",
	}
}

func TestExecuteAppliesAllEffectsTogether(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	seedVehicle(t, f, "VEH_001", enums.VehicleStatusAvailable)
	seedAllocatedRequest(t, f, "FUL_PLAN01")

	plan, err := f.svc.Execute(ctx, executeInput("FUL_PLAN01", "VEH_001"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if plan.Status != enums.PlanStatusApproved {
		t.Fatalf("expected approved plan, got %s", plan.Status)
	}
	if len(plan.StoreDestinations) != 1 || plan.StoreDestinations[0] != "STORE_001" {
		t.Fatalf("unexpected destinations %v", plan.StoreDestinations)
	}
	if plan.TotalWeight != 40 || plan.TotalVolume != 20 {
		t.Fatalf("unexpected totals %f/%f", plan.TotalWeight, plan.TotalVolume)
	}

	vehicle, err := f.fleet.Find(ctx, "VEH_001")
	if err != nil {
		t.Fatalf("find vehicle: %v", err)
	}
	if vehicle.Status != enums.VehicleStatusLoading || vehicle.CurrentVolume != 20 || vehicle.CurrentWeight != 40 {
		t.Fatalf("unexpected vehicle state %+v", vehicle)
	}

	request, err := f.requests.Find(ctx, "FUL_PLAN01")
	if err != nil {
		t.Fatalf("find request: %v", err)
	}
	if request.Status != enums.RequestStatusApproved {
		t.Fatalf("expected approved request, got %s", request.Status)
	}
}

func TestExecuteRollsBackWhenVehicleUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	seedVehicle(t, f, "VEH_001", enums.VehicleStatusInTransit)
	seedAllocatedRequest(t, f, "FUL_PLAN02")

	_, err := f.svc.Execute(ctx, executeInput("FUL_PLAN02", "VEH_001"))
	if err == nil {
		t.Fatal("expected execution to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// No partial effect: no plan row, request untouched.
	var count int64
	if err := f.db.Table("delivery_plans").Count(&count).Error; err != nil {
		t.Fatalf("count plans: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no plan rows, got %d", count)
	}
	request, err := f.requests.Find(ctx, "FUL_PLAN02")
	if err != nil {
		t.Fatalf("find request: %v", err)
	}
	if request.Status != enums.RequestStatusAllocated {
		t.Fatalf("request must stay allocated, got %s", request.Status)
	}
}

func TestExecuteRollsBackWhenRequestNotAllocated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	seedVehicle(t, f, "VEH_001", enums.VehicleStatusAvailable)
	request := &models.FulfillmentRequest{
		RequestID: "FUL_PLAN03",
		StoreID:   "STORE_001",
		WindowKey: "FUL_PLAN03",
		Status:    enums.RequestStatusPending,
	}
	if _, err := f.requests.Create(ctx, request); err != nil {
		t.Fatalf("seed request: %v", err)
	}

	_, err := f.svc.Execute(ctx, executeInput("FUL_PLAN03", "VEH_001"))
	if err == nil {
		t.Fatal("expected execution to fail")
	}

	vehicle, err := f.fleet.Find(ctx, "VEH_001")
	if err != nil {
		t.Fatalf("find vehicle: %v", err)
	}
	if vehicle.Status != enums.VehicleStatusAvailable || vehicle.CurrentVolume != 0 {
		t.Fatalf("vehicle must stay available with zero load, got %+v", vehicle)
	}
}

func TestCompleteReleasesVehicles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	seedVehicle(t, f, "VEH_001", enums.VehicleStatusAvailable)
	seedAllocatedRequest(t, f, "FUL_PLAN04")

	plan, err := f.svc.Execute(ctx, executeInput("FUL_PLAN04", "VEH_001"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	completed, err := f.svc.Complete(ctx, plan.PlanID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != enums.PlanStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}

	vehicle, err := f.fleet.Find(ctx, "VEH_001")
	if err != nil {
		t.Fatalf("find vehicle: %v", err)
	}
	if vehicle.Status != enums.VehicleStatusAvailable || vehicle.CurrentVolume != 0 || vehicle.CurrentWeight != 0 {
		t.Fatalf("vehicle must be released with zeroed load, got %+v", vehicle)
	}

	// Completion is terminal.
	if _, err := f.svc.Complete(ctx, plan.PlanID); err == nil {
		t.Fatal("expected second completion to fail")
	}
}

func TestExecuteRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Execute(context.Background(), ExecuteInput{ApprovedBy: "ops@warehouse"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
