package models

import (
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/enums"
)

// Vehicle is a delivery vehicle with finite weight and volume capacity.
type Vehicle struct {
	VehicleID         string              `gorm:"column:vehicle_id;primaryKey"`
	LicensePlate      string              `gorm:"column:license_plate;not null"`
	VehicleType       string              `gorm:"column:vehicle_type;not null"`
	MaxWeightCapacity float64             `gorm:"column:max_weight_capacity;not null"`
	MaxVolumeCapacity float64             `gorm:"column:max_volume_capacity;not null"`
	CurrentWeight     float64             `gorm:"column:current_weight;not null;default:0"`
	CurrentVolume     float64             `gorm:"column:current_volume;not null;default:0"`
	Status            enums.VehicleStatus `gorm:"column:status;not null;default:available"`
	DriverID          *string             `gorm:"column:driver_id"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableWeightCapacity is remaining weight headroom, floored at zero.
func (v Vehicle) AvailableWeightCapacity() float64 {
	if avail := v.MaxWeightCapacity - v.CurrentWeight; avail > 0 {
		return avail
	}
	return 0
}

// AvailableVolumeCapacity is remaining volume headroom, floored at zero.
func (v Vehicle) AvailableVolumeCapacity() float64 {
	if avail := v.MaxVolumeCapacity - v.CurrentVolume; avail > 0 {
		return avail
	}
	return 0
}
