package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateIntentInput carries what the card rail needs to authorize an upfront
// order payment.
type CreateIntentInput struct {
	OrderID uuid.UUID
	OwnerID uuid.UUID
	Amount  decimal.Decimal
}

// Intent is the provider-side handle for an authorized payment. ClientSecret
// is handed to the owner's client to complete confirmation.
type Intent struct {
	ID           string
	ClientSecret string
}

// PaymentRail authorizes owner-side card payments.
type PaymentRail interface {
	CreatePaymentIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
}

// TransferInput carries what the transfer rail needs to move a payout to a
// driver's external account.
type TransferInput struct {
	PayoutID  uuid.UUID
	DriverID  uuid.UUID
	AccountID string
	Amount    decimal.Decimal
}

// TransferRail moves settled driver earnings to external accounts.
type TransferRail interface {
	TransferToDriver(ctx context.Context, input TransferInput) (reference string, err error)
	AccountCanReceivePayouts(ctx context.Context, accountID string) (bool, error)
}
