package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// CargoOrder is a shipment request posted by a cargo owner. Orders are never
// physically deleted; the terminal states are delivered and cancelled.
type CargoOrder struct {
	ID      uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID uuid.UUID         `gorm:"column:owner_id;type:uuid;not null"`
	Status  enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'draft'"`

	PickupAddress     string           `gorm:"column:pickup_address;not null"`
	PickupLatitude    *decimal.Decimal `gorm:"column:pickup_latitude;type:numeric(9,6)"`
	PickupLongitude   *decimal.Decimal `gorm:"column:pickup_longitude;type:numeric(9,6)"`
	DeliveryAddress   string           `gorm:"column:delivery_address;not null"`
	DeliveryLatitude  *decimal.Decimal `gorm:"column:delivery_latitude;type:numeric(9,6)"`
	DeliveryLongitude *decimal.Decimal `gorm:"column:delivery_longitude;type:numeric(9,6)"`
	CargoDescription  string           `gorm:"column:cargo_description"`
	WeightKg          *decimal.Decimal `gorm:"column:weight_kg;type:numeric(10,2)"`

	AcceptedBidID *uuid.UUID `gorm:"column:accepted_bid_id;type:uuid"`

	// TotalAmount is the accepted bid amount. The owner-facing charge adds
	// SystemFee and Tax on top; see ChargeTotal.
	TotalAmount    decimal.Decimal  `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	SystemFee      decimal.Decimal  `gorm:"column:system_fee;type:numeric(12,2);not null;default:0"`
	Tax            decimal.Decimal  `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	DriverEarnings *decimal.Decimal `gorm:"column:driver_earnings;type:numeric(12,2)"`

	PaymentMethod   *enums.PaymentMethod `gorm:"column:payment_method;type:payment_method"`
	PaymentIntentID *string              `gorm:"column:payment_intent_id"`
	IsPaid          bool                 `gorm:"column:is_paid;not null;default:false"`
	PaymentDueDate  *time.Time           `gorm:"column:payment_due_date"`

	IsFlagged bool `gorm:"column:is_flagged;not null;default:false"`

	ExpectedPickupDateTime *time.Time `gorm:"column:expected_pickup_datetime"`
	ActualPickupDateTime   *time.Time `gorm:"column:actual_pickup_datetime"`
	DeliveryDateTime       *time.Time `gorm:"column:delivery_datetime"`
	CancelledAt            *time.Time `gorm:"column:cancelled_at"`

	Bids []Bid `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CargoOrder) TableName() string { return "cargo_orders" }

// ChargeTotal is the amount the owner actually pays for the order.
func (o CargoOrder) ChargeTotal() decimal.Decimal {
	return o.TotalAmount.Add(o.SystemFee).Add(o.Tax)
}
