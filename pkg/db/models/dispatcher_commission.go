package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DispatcherCommission is the commission percentage a dispatcher takes on a
// given driver's bids, with an effective-date range. Only one record per
// (driver, dispatcher) pair may be open (EffectiveTo null) at a time; changes
// close the old record and open a new one so history never mutates.
type DispatcherCommission struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID     uuid.UUID `gorm:"column:driver_id;type:uuid;not null;index:ix_dispatcher_commissions_pair,priority:1"`
	DispatcherID uuid.UUID `gorm:"column:dispatcher_id;type:uuid;not null;index:ix_dispatcher_commissions_pair,priority:2"`

	Rate decimal.Decimal `gorm:"column:rate;type:numeric(5,4);not null"`

	EffectiveFrom time.Time  `gorm:"column:effective_from;not null"`
	EffectiveTo   *time.Time `gorm:"column:effective_to"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (DispatcherCommission) TableName() string { return "dispatcher_commissions" }
