package enums

import "testing"

func TestOrderStatusHasAcceptedBid(t *testing.T) {
	withBid := []OrderStatus{
		OrderStatusDriverSelected,
		OrderStatusDriverAcknowledged,
		OrderStatusReadyForPickup,
		OrderStatusInTransit,
		OrderStatusDelivered,
	}
	for _, s := range withBid {
		if !s.HasAcceptedBid() {
			t.Fatalf("%s should require an accepted bid", s)
		}
	}
	without := []OrderStatus{
		OrderStatusDraft,
		OrderStatusOpenForBidding,
		OrderStatusBiddingInProgress,
		OrderStatusCancelled,
	}
	for _, s := range without {
		if s.HasAcceptedBid() {
			t.Fatalf("%s should not require an accepted bid", s)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("in_transit")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != OrderStatusInTransit {
		t.Fatalf("unexpected status %s", got)
	}
	if _, err := ParseOrderStatus("flying"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestBidStatusIsAccepted(t *testing.T) {
	if !BidStatusCargoOwnerSelected.IsAccepted() {
		t.Fatal("cargo_owner_selected is an accepted state")
	}
	if !BidStatusDriverAcknowledged.IsAccepted() {
		t.Fatal("driver_acknowledged is an accepted state")
	}
	if BidStatusPending.IsAccepted() || BidStatusExpired.IsAccepted() {
		t.Fatal("pending/expired are not accepted states")
	}
}
