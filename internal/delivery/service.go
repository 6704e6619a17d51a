package delivery

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/internal/fulfillment"
	"github.com/andresvaldez/warehouse-backend/internal/vehicles"
	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ItemInput is one product quantity bound for one store.
type ItemInput struct {
	StoreID   string  `json:"store_id" validate:"required"`
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Weight    float64 `json:"weight" validate:"gte=0"`
	Volume    float64 `json:"volume" validate:"gte=0"`
}

// ExecuteInput is the approved shipment handed to the executor.
type ExecuteInput struct {
	RequestIDs  []string              `json:"request_ids" validate:"required,min=1"`
	Items       []ItemInput           `json:"items" validate:"required,min=1,dive"`
	Assignments []vehicles.Assignment `json:"assignments" validate:"required,min=1"`
	ApprovedBy  string                `json:"approved_by" validate:"required"`
	Notes       *string               `json:"notes"`
}

// Service turns an approved shipment into a delivery plan. All effects land
// in one transaction: either the plan exists with its vehicles loading and
// its requests approved, or nothing changed.
type Service struct {
	tx       txRunner
	plans    Repository
	fleet    vehicles.Repository
	requests fulfillment.Repository
	logg     *logger.Logger
	pipeline *metrics.PipelineMetrics
}

// NewService wires the delivery executor.
func NewService(tx txRunner, plans Repository, fleet vehicles.Repository, requests fulfillment.Repository, logg *logger.Logger, pipeline *metrics.PipelineMetrics) *Service {
	return &Service{
		tx:       tx,
		plans:    plans,
		fleet:    fleet,
		requests: requests,
		logg:     logg,
		pipeline: pipeline,
	}
}

// Execute creates the plan in approved status, flips every assigned vehicle
// to loading and marks the referenced requests approved. A vehicle that is no
// longer available, or a request no longer in allocated status, fails the
// whole operation with no partial effect.
func (s *Service) Execute(ctx context.Context, input ExecuteInput) (*models.DeliveryPlan, error) {
	if len(input.RequestIDs) == 0 || len(input.Items) == 0 || len(input.Assignments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery plan needs requests, items and vehicle assignments")
	}
	if input.ApprovedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver identity is required")
	}

	plan := buildPlan(input)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.plans.WithTx(tx).Create(ctx, plan); err != nil {
			return err
		}
		for _, assignment := range input.Assignments {
			if err := s.fleet.MarkLoading(ctx, tx, assignment.VehicleID, assignment.AssignedWeight, assignment.AssignedVolume); err != nil {
				return err
			}
		}
		scoped := s.requests.WithTx(tx)
		for _, requestID := range input.RequestIDs {
			if err := scoped.TransitionStatus(ctx, requestID, []enums.RequestStatus{enums.RequestStatusAllocated}, enums.RequestStatusApproved, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.pipeline.IncPlanExecuted()
	s.logg.Info(s.logg.WithField(ctx, "plan_id", plan.PlanID), "delivery plan executed")
	return plan, nil
}

// Complete releases every assigned vehicle back to available with a zeroed
// load and marks the plan completed.
func (s *Service) Complete(ctx context.Context, planID string) (*models.DeliveryPlan, error) {
	plan, err := s.plans.Find(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Status.CanAdvanceTo(enums.PlanStatusCompleted) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery plan is already completed")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, assigned := range plan.Vehicles {
			if err := s.fleet.Release(ctx, tx, assigned.VehicleID); err != nil {
				return err
			}
		}
		return s.plans.WithTx(tx).AdvanceStatus(ctx, planID, plan.Status, enums.PlanStatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	plan.Status = enums.PlanStatusCompleted
	s.logg.Info(s.logg.WithField(ctx, "plan_id", planID), "delivery plan completed")
	return plan, nil
}

func buildPlan(input ExecuteInput) *models.DeliveryPlan {
	plan := &models.DeliveryPlan{
		PlanID:         newID("SHIP"),
		Status:         enums.PlanStatusApproved,
		ApprovedBy:     input.ApprovedBy,
		ExecutionNotes: input.Notes,
	}

	stores := map[string]struct{}{}
	for _, item := range input.Items {
		stores[item.StoreID] = struct{}{}
		plan.TotalWeight += item.Weight
		plan.TotalVolume += item.Volume
		plan.Items = append(plan.Items, models.DeliveryPlanItem{
			StoreID:   item.StoreID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Weight:    item.Weight,
			Volume:    item.Volume,
		})
	}
	for storeID := range stores {
		plan.StoreDestinations = append(plan.StoreDestinations, storeID)
	}
	sort.Strings(plan.StoreDestinations)

	for _, assignment := range input.Assignments {
		plan.Vehicles = append(plan.Vehicles, models.DeliveryPlanVehicle{
			VehicleID:      assignment.VehicleID,
			AssignedVolume: assignment.AssignedVolume,
			AssignedWeight: assignment.AssignedWeight,
		})
	}
	return plan
}

func newID(prefix string) string {
	return prefix + "_" + strings.ToUpper(uuid.NewString()[:8])
}
