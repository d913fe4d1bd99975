package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// The identity tables are owned by the excluded user-management subsystem.
// This core reads them and never writes.

// CargoOwner is the posting side of an order.
type CargoOwner struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Type      enums.OwnerType `gorm:"column:type;type:owner_type;not null"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (CargoOwner) TableName() string { return "cargo_owners" }

// Driver is the fulfilling side of an order.
type Driver struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null"`

	IsActive bool `gorm:"column:is_active;not null;default:true"`

	// StripeAccountID is set once the driver completes external payout
	// onboarding; PayoutsEnabled mirrors the rail's capability check.
	StripeAccountID *string `gorm:"column:stripe_account_id"`
	PayoutsEnabled  bool    `gorm:"column:payouts_enabled;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Driver) TableName() string { return "drivers" }

// Dispatcher bids and manages drivers on their behalf for a commission.
type Dispatcher struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Dispatcher) TableName() string { return "dispatchers" }

// Truck belongs to a driver; bids are placed per truck.
type Truck struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DriverID    uuid.UUID `gorm:"column:driver_id;type:uuid;not null"`
	PlateNumber string    `gorm:"column:plate_number;not null"`
	CapacityKg  *int      `gorm:"column:capacity_kg"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Truck) TableName() string { return "trucks" }
