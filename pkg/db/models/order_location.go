package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLocation is a location ping logged against an in-transit order.
// Consumed for tracking display only; no routing is derived from it.
type OrderLocation struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`

	Latitude  decimal.Decimal `gorm:"column:latitude;type:numeric(9,6);not null"`
	Longitude decimal.Decimal `gorm:"column:longitude;type:numeric(9,6);not null"`

	RecordedAt time.Time `gorm:"column:recorded_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (OrderLocation) TableName() string { return "order_locations" }
