package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// OrderCancellation captures the state of an order at cancellation time plus
// the computed penalty and refund routing. One record per cancelled order,
// immutable except for the refund-processing fields.
type OrderCancellation struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_cancellations_order"`

	StatusAtCancellation enums.OrderStatus `gorm:"column:status_at_cancellation;type:order_status;not null"`
	CancelledByID        uuid.UUID         `gorm:"column:cancelled_by_id;type:uuid;not null"`

	TotalAmount       decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PenaltyPercentage decimal.Decimal `gorm:"column:penalty_percentage;type:numeric(5,2);not null"`
	PenaltyAmount     decimal.Decimal `gorm:"column:penalty_amount;type:numeric(12,2);not null"`
	RefundAmount      decimal.Decimal `gorm:"column:refund_amount;type:numeric(12,2);not null"`
	Justification     string          `gorm:"column:justification;not null"`

	RefundMethod enums.RefundMethod       `gorm:"column:refund_method;type:refund_method;not null"`
	Status       enums.CancellationStatus `gorm:"column:status;type:cancellation_status;not null;default:'pending'"`
	ProcessedAt  *time.Time               `gorm:"column:processed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (OrderCancellation) TableName() string { return "order_cancellations" }
