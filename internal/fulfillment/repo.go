package fulfillment

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/pkg/db"
	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

// Repository defines persistence for fulfillment requests and their
// append-only allocation records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.FulfillmentRequest) (*models.FulfillmentRequest, error)
	Find(ctx context.Context, requestID string) (*models.FulfillmentRequest, error)
	FindByWindow(ctx context.Context, storeID, windowKey string) (*models.FulfillmentRequest, error)
	List(ctx context.Context, storeID string, status enums.RequestStatus, params pagination.Params) ([]models.FulfillmentRequest, string, error)
	TransitionStatus(ctx context.Context, requestID string, from []enums.RequestStatus, to enums.RequestStatus, errorMessage *string) error
	CreateAllocation(ctx context.Context, allocation *models.Allocation) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fulfillment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create persists the request with its line items. A second create for the
// same (store_id, window_key) hits the unique index and comes back as a
// conflict so redelivered windows stay idempotent.
func (r *repository) Create(ctx context.Context, request *models.FulfillmentRequest) (*models.FulfillmentRequest, error) {
	if request.Status == "" {
		request.Status = enums.RequestStatusPending
	}
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_fulfillment_requests_store_window") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "fulfillment request already exists for this store and window")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fulfillment request")
	}
	return request, nil
}

func (r *repository) Find(ctx context.Context, requestID string) (*models.FulfillmentRequest, error) {
	var request models.FulfillmentRequest
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("request_id = ?", requestID).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment request not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment request")
	}
	return &request, nil
}

// FindByWindow looks a request up by its aggregation natural key, so a
// redelivered window can converge on the request a prior run already created.
func (r *repository) FindByWindow(ctx context.Context, storeID, windowKey string) (*models.FulfillmentRequest, error) {
	var request models.FulfillmentRequest
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("store_id = ? AND window_key = ?", storeID, windowKey).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment request not found for window")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment request by window")
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, storeID string, status enums.RequestStatus, params pagination.Params) ([]models.FulfillmentRequest, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Model(&models.FulfillmentRequest{}).
		Preload("LineItems").
		Order("created_at ASC, request_id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if cursor != nil {
		query = query.Where("(created_at, request_id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var requests []models.FulfillmentRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fulfillment requests")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(requests) > limit {
		requests = requests[:limit]
		last := requests[len(requests)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.RequestID})
	}
	return requests, next, nil
}

// TransitionStatus moves the request between states with a conditional update;
// a zero row count means the request was not in any of the expected states.
func (r *repository) TransitionStatus(ctx context.Context, requestID string, from []enums.RequestStatus, to enums.RequestStatus, errorMessage *string) error {
	updates := map[string]any{"status": to}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}
	res := r.db.WithContext(ctx).Model(&models.FulfillmentRequest{}).
		Where("request_id = ? AND status IN ?", requestID, from).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "transition request status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "request is not in an expected state")
	}
	return nil
}

func (r *repository) CreateAllocation(ctx context.Context, allocation *models.Allocation) error {
	if err := r.db.WithContext(ctx).Create(allocation).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create allocation record")
	}
	return nil
}
