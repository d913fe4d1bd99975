package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// DriverPayout aggregates one driver's settled orders for one payout period.
// The (driver, period_start, period_end) tuple is unique: re-running the
// scheduler for a processed period returns the existing record.
type DriverPayout struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID uuid.UUID `gorm:"column:driver_id;type:uuid;not null;uniqueIndex:ux_driver_payouts_driver_period,priority:1"`

	PeriodStart time.Time `gorm:"column:period_start;not null;uniqueIndex:ux_driver_payouts_driver_period,priority:2"`
	PeriodEnd   time.Time `gorm:"column:period_end;not null;uniqueIndex:ux_driver_payouts_driver_period,priority:3"`

	TotalEarnings decimal.Decimal    `gorm:"column:total_earnings;type:numeric(12,2);not null"`
	Status        enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'processing'"`
	Rail          enums.PayoutRail   `gorm:"column:rail;type:payout_rail;not null"`

	TransferReference *string `gorm:"column:transfer_reference"`
	FailureReason     *string `gorm:"column:failure_reason"`

	Orders []DriverPayoutOrder `gorm:"foreignKey:PayoutID;constraint:OnDelete:CASCADE"`

	ProcessedAt *time.Time `gorm:"column:processed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (DriverPayout) TableName() string { return "driver_payouts" }

// UniqueDriverPeriodConstraint is the named index guarding at-most-once
// payouts per (driver, period).
const UniqueDriverPeriodConstraint = "ux_driver_payouts_driver_period"
