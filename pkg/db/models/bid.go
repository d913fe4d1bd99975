package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// Bid is an offer from a driver (directly or via dispatcher) against one
// order. Bids are kept for audit and never deleted.
type Bid struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	TruckID uuid.UUID `gorm:"column:truck_id;type:uuid;not null"`

	Amount decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Status enums.BidStatus `gorm:"column:status;type:bid_status;not null;default:'pending'"`

	SubmitterType enums.BidSubmitterType `gorm:"column:submitter_type;type:bid_submitter_type;not null"`
	DispatcherID  *uuid.UUID             `gorm:"column:dispatcher_id;type:uuid"`

	// Commission split, computed at submission from the active
	// (driver, dispatcher) commission record. Null for direct driver bids.
	DispatcherCommissionRate   *decimal.Decimal `gorm:"column:dispatcher_commission_rate;type:numeric(5,4)"`
	DispatcherCommissionAmount *decimal.Decimal `gorm:"column:dispatcher_commission_amount;type:numeric(12,2)"`
	DriverEarnings             *decimal.Decimal `gorm:"column:driver_earnings;type:numeric(12,2)"`

	DriverAcknowledgedAt *time.Time `gorm:"column:driver_acknowledged_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Bid) TableName() string { return "bids" }
