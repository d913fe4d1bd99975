package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// WalletTransaction is an append-only ledger row. Amount is signed: credits
// are positive, debits negative. BalanceAfter snapshots the running balance
// the row produced.
type WalletTransaction struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID uuid.UUID `gorm:"column:wallet_id;type:uuid;not null;index"`

	Amount       decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter decimal.Decimal             `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Type         enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	Description  string                      `gorm:"column:description;not null"`

	RelatedOrderID *uuid.UUID `gorm:"column:related_order_id;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }
