package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/andresvaldez/warehouse-backend/pkg/enums"
)

// DeliveryPlan is the terminal artifact of the pipeline: approved goods
// assigned to one or more vehicles bound for one or more stores.
type DeliveryPlan struct {
	PlanID            string                `gorm:"column:plan_id;primaryKey"`
	StoreDestinations pq.StringArray        `gorm:"column:store_destinations;type:text[];not null"`
	Status            enums.PlanStatus      `gorm:"column:status;not null;default:pending"`
	ApprovedBy        string                `gorm:"column:approved_by;not null"`
	TotalWeight       float64               `gorm:"column:total_weight;not null;default:0"`
	TotalVolume       float64               `gorm:"column:total_volume;not null;default:0"`
	ExecutionNotes    *string               `gorm:"column:execution_notes"`
	Items             []DeliveryPlanItem    `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	Vehicles          []DeliveryPlanVehicle `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliveryPlanItem is one product quantity bound for one store.
type DeliveryPlanItem struct {
	ID        uint    `gorm:"column:id;primaryKey;autoIncrement"`
	PlanID    string  `gorm:"column:plan_id;not null;index"`
	StoreID   string  `gorm:"column:store_id;not null"`
	ProductID string  `gorm:"column:product_id;not null"`
	Quantity  int     `gorm:"column:quantity;not null"`
	Weight    float64 `gorm:"column:weight;not null;default:0"`
	Volume    float64 `gorm:"column:volume;not null;default:0"`
}

// DeliveryPlanVehicle records one vehicle's share of the plan's load.
type DeliveryPlanVehicle struct {
	ID             uint    `gorm:"column:id;primaryKey;autoIncrement"`
	PlanID         string  `gorm:"column:plan_id;not null;index"`
	VehicleID      string  `gorm:"column:vehicle_id;not null"`
	AssignedVolume float64 `gorm:"column:assigned_volume;not null;default:0"`
	AssignedWeight float64 `gorm:"column:assigned_weight;not null;default:0"`
}
