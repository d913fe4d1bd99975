package cancellations

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
)

func TestQuotePenaltyByState(t *testing.T) {
	total := decimal.RequireFromString("1000.00")

	cases := []struct {
		name        string
		status      enums.OrderStatus
		hasAccepted bool
		wantPenalty string
		wantRefund  string
	}{
		{"draft", enums.OrderStatusDraft, false, "0.00", "1000.00"},
		{"open for bidding", enums.OrderStatusOpenForBidding, false, "0.00", "1000.00"},
		{"bidding in progress", enums.OrderStatusBiddingInProgress, false, "0.00", "1000.00"},
		{"driver selected", enums.OrderStatusDriverSelected, true, "10.00", "990.00"},
		{"driver acknowledged", enums.OrderStatusDriverAcknowledged, true, "20.00", "980.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := QuotePenalty(tc.status, tc.hasAccepted, total)
			if err != nil {
				t.Fatalf("QuotePenalty error: %v", err)
			}
			if got := quote.PenaltyAmount.StringFixed(2); got != tc.wantPenalty {
				t.Fatalf("penalty: expected %s, got %s", tc.wantPenalty, got)
			}
			if got := quote.RefundAmount.StringFixed(2); got != tc.wantRefund {
				t.Fatalf("refund: expected %s, got %s", tc.wantRefund, got)
			}
			if quote.Justification == "" {
				t.Fatal("expected a justification")
			}
		})
	}
}

func TestQuotePenaltyForbiddenStates(t *testing.T) {
	total := decimal.RequireFromString("1000.00")
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	} {
		t.Run(status.String(), func(t *testing.T) {
			_, err := QuotePenalty(status, true, total)
			if !pkgerrors.HasCode(err, pkgerrors.CodeCancellationNotAllowed) {
				t.Fatalf("expected CANCELLATION_NOT_ALLOWED, got %v", err)
			}
		})
	}
}

func TestQuotePenaltyZeroTotal(t *testing.T) {
	quote, err := QuotePenalty(enums.OrderStatusOpenForBidding, false, decimal.Zero)
	if err != nil {
		t.Fatalf("QuotePenalty error: %v", err)
	}
	if !quote.PenaltyAmount.IsZero() || !quote.RefundAmount.IsZero() {
		t.Fatalf("expected zero amounts for unpriced order, got %+v", quote)
	}
}
