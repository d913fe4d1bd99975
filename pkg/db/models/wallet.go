package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a running balance owned by exactly one cargo owner or driver.
// The balance column is a cached projection of the transaction rows, never
// the source of truth; both are written inside one transaction.
type Wallet struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_wallets_user_kind,priority:1"`
	Kind   string    `gorm:"column:kind;type:wallet_kind;not null;uniqueIndex:ux_wallets_user_kind,priority:2"`

	Balance decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`

	// BankLinked marks a driver wallet verified for bank withdrawal, the
	// fallback payout path when no external transfer account exists.
	BankLinked bool `gorm:"column:bank_linked;not null;default:false"`

	Transactions []WalletTransaction `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallets" }

// Wallet kinds.
const (
	WalletKindCargoOwner = "cargo_owner"
	WalletKindDriver     = "driver"
)
