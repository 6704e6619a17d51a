package delivery

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

// Repository persists delivery plans and their vehicle assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plan *models.DeliveryPlan) error
	Find(ctx context.Context, planID string) (*models.DeliveryPlan, error)
	List(ctx context.Context, params pagination.Params) ([]models.DeliveryPlan, string, error)
	AdvanceStatus(ctx context.Context, planID string, from, to enums.PlanStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a delivery plan repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, plan *models.DeliveryPlan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery plan")
	}
	return nil
}

func (r *repository) Find(ctx context.Context, planID string) (*models.DeliveryPlan, error) {
	var plan models.DeliveryPlan
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Vehicles").
		First(&plan, "plan_id = ?", planID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find delivery plan")
	}
	return &plan, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.DeliveryPlan, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Model(&models.DeliveryPlan{}).
		Preload("Vehicles").
		Order("created_at ASC, plan_id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at, plan_id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var plans []models.DeliveryPlan
	if err := query.Find(&plans).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery plans")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(plans) > limit {
		plans = plans[:limit]
		last := plans[len(plans)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.PlanID})
	}
	return plans, next, nil
}

// AdvanceStatus moves the plan forward with a conditional update. Backwards
// transitions are rejected before touching the row.
func (r *repository) AdvanceStatus(ctx context.Context, planID string, from, to enums.PlanStatus) error {
	if !from.CanAdvanceTo(to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery plan status cannot move backwards")
	}

	res := r.db.WithContext(ctx).Model(&models.DeliveryPlan{}).
		Where("plan_id = ? AND status = ?", planID, from).
		Update("status", to)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "advance delivery plan status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery plan is not in the expected status")
	}
	return nil
}
