package cancellations

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/money"
)

// Quote is the cancellation outcome for an order in its current state.
// PenaltyPercentage is human-facing (2 means 2%).
type Quote struct {
	PenaltyPercentage decimal.Decimal `json:"penalty_percentage"`
	PenaltyAmount     decimal.Decimal `json:"penalty_amount"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	Justification     string          `json:"justification"`
}

var (
	penaltyNone      = decimal.Zero
	penaltyReserved  = decimal.NewFromInt(1)
	penaltyCommitted = decimal.NewFromInt(2)
)

// QuotePenalty derives the penalty from order state alone. It performs no
// lookup and no mutation, so callers can preview it freely before
// confirming.
func QuotePenalty(status enums.OrderStatus, hasAcceptedBid bool, totalAmount decimal.Decimal) (Quote, error) {
	switch status {
	case enums.OrderStatusDraft, enums.OrderStatusOpenForBidding, enums.OrderStatusBiddingInProgress:
		if hasAcceptedBid {
			break
		}
		return buildQuote(penaltyNone, totalAmount, "no driver selected"), nil
	case enums.OrderStatusDriverSelected:
		return buildQuote(penaltyReserved, totalAmount, "driver reserved but not committed"), nil
	case enums.OrderStatusDriverAcknowledged:
		return buildQuote(penaltyCommitted, totalAmount, "driver has committed, may have adjusted schedule"), nil
	}
	return Quote{}, pkgerrors.New(pkgerrors.CodeCancellationNotAllowed,
		fmt.Sprintf("order in %s cannot be cancelled", status)).
		WithDetails(map[string]string{"status": status.String()})
}

func buildQuote(percentage, totalAmount decimal.Decimal, justification string) Quote {
	penalty := money.ApplyRate(totalAmount, money.Percent(percentage))
	return Quote{
		PenaltyPercentage: percentage,
		PenaltyAmount:     penalty,
		RefundAmount:      totalAmount.Sub(penalty),
		Justification:     justification,
	}
}
