package models

import (
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/enums"
)

// Store represents a retail store served by the central warehouse.
type Store struct {
	StoreID     string            `gorm:"column:store_id;primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	Street      string            `gorm:"column:street"`
	City        string            `gorm:"column:city"`
	State       string            `gorm:"column:state"`
	PostalCode  string            `gorm:"column:postal_code"`
	Status      enums.StoreStatus `gorm:"column:status;not null;default:active"`
	ManagerName *string           `gorm:"column:manager_name"`
	Phone       *string           `gorm:"column:phone"`
	Email       *string           `gorm:"column:email"`
	MaxWeight   float64           `gorm:"column:max_weight"`
	MaxVolume   float64           `gorm:"column:max_volume"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
