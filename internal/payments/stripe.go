package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/transfer"

	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	pkgstripe "github.com/loadhub-io/loadhub-backend/pkg/stripe"
)

// StripeRails implements both rails against Stripe.
type StripeRails struct {
	currency string
}

// NewStripeRails builds the Stripe-backed rails. The client initializes the
// package-level API key, so only currency metadata is carried here.
func NewStripeRails(client *pkgstripe.Client) (*StripeRails, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	return &StripeRails{currency: client.Currency()}, nil
}

func (r *StripeRails) CreatePaymentIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(input.Amount)),
		Currency: stripe.String(r.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", input.OrderID.String())
	params.AddMetadata("owner_id", input.OwnerID.String())

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return &Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (r *StripeRails) TransferToDriver(ctx context.Context, input TransferInput) (string, error) {
	if input.AccountID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "destination account required")
	}
	if !input.Amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(toMinorUnits(input.Amount)),
		Currency:    stripe.String(r.currency),
		Destination: stripe.String(input.AccountID),
	}
	params.Context = ctx
	params.AddMetadata("payout_id", input.PayoutID.String())
	params.AddMetadata("driver_id", input.DriverID.String())

	tr, err := transfer.New(params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeTransferFailed, err, "transfer to driver")
	}
	return tr.ID, nil
}

func (r *StripeRails) AccountCanReceivePayouts(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, nil
	}

	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe account")
	}
	return acct.PayoutsEnabled, nil
}

// toMinorUnits converts a two-decimal amount to the integer minor units the
// provider expects.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

var (
	_ PaymentRail  = (*StripeRails)(nil)
	_ TransferRail = (*StripeRails)(nil)
)
