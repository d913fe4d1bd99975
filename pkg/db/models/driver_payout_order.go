package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DriverPayoutOrder is one settled order inside a payout.
type DriverPayoutOrder struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PayoutID uuid.UUID `gorm:"column:payout_id;type:uuid;not null;index"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null"`

	Earnings    decimal.Decimal `gorm:"column:earnings;type:numeric(12,2);not null"`
	DeliveredAt time.Time       `gorm:"column:delivered_at;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (DriverPayoutOrder) TableName() string { return "driver_payout_orders" }
