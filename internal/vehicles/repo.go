package vehicles

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

// Repository defines persistence operations for the vehicle fleet.
type Repository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error)
	Find(ctx context.Context, vehicleID string) (*models.Vehicle, error)
	List(ctx context.Context, params pagination.Params) ([]models.Vehicle, string, error)
	ListAvailable(ctx context.Context) ([]models.Vehicle, error)
	MarkLoading(ctx context.Context, tx *gorm.DB, vehicleID string, addWeight, addVolume float64) error
	Release(ctx context.Context, tx *gorm.DB, vehicleID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a vehicle repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error) {
	if vehicle.MaxWeightCapacity <= 0 || vehicle.MaxVolumeCapacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle capacities must be positive")
	}
	if vehicle.Status == "" {
		vehicle.Status = enums.VehicleStatusAvailable
	}
	if err := r.db.WithContext(ctx).Create(vehicle).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vehicle")
	}
	return vehicle, nil
}

func (r *repository) Find(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).Where("vehicle_id = ?", vehicleID).First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	return &vehicle, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Vehicle, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Model(&models.Vehicle{}).
		Order("created_at ASC, vehicle_id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at, vehicle_id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var fleet []models.Vehicle
	if err := query.Find(&fleet).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vehicles")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(fleet) > limit {
		fleet = fleet[:limit]
		last := fleet[len(fleet)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.VehicleID})
	}
	return fleet, next, nil
}

func (r *repository) ListAvailable(ctx context.Context) ([]models.Vehicle, error) {
	var fleet []models.Vehicle
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.VehicleStatusAvailable).
		Order("vehicle_id ASC").
		Find(&fleet).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available vehicles")
	}
	return fleet, nil
}

// MarkLoading flips an available vehicle to loading and claims capacity in one
// conditional update; a zero row count means the vehicle was taken or lacks room.
func (r *repository) MarkLoading(ctx context.Context, tx *gorm.DB, vehicleID string, addWeight, addVolume float64) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}

	res := conn.WithContext(ctx).Exec(`
		UPDATE vehicles
		SET status = ?,
			current_weight = current_weight + ?,
			current_volume = current_volume + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE vehicle_id = ?
			AND status = ?
			AND max_weight_capacity - current_weight >= ?
			AND max_volume_capacity - current_volume >= ?
	`, enums.VehicleStatusLoading, addWeight, addVolume, vehicleID,
		enums.VehicleStatusAvailable, addWeight, addVolume)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark vehicle loading")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle is not available with enough capacity")
	}
	return nil
}

// Release returns a vehicle to the available pool with a zeroed load.
func (r *repository) Release(ctx context.Context, tx *gorm.DB, vehicleID string) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}

	res := conn.WithContext(ctx).Exec(`
		UPDATE vehicles
		SET status = ?,
			current_weight = 0,
			current_volume = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE vehicle_id = ? AND status IN (?, ?)
	`, enums.VehicleStatusAvailable, vehicleID,
		enums.VehicleStatusLoading, enums.VehicleStatusInTransit)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release vehicle")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle is not assigned to a plan")
	}
	return nil
}
