package enums

import "fmt"

// BidStatus tracks the lifecycle of a single bid against an order.
type BidStatus string

const (
	BidStatusPending            BidStatus = "pending"
	BidStatusAdminApproved      BidStatus = "admin_approved"
	BidStatusCargoOwnerSelected BidStatus = "cargo_owner_selected"
	BidStatusDriverAcknowledged BidStatus = "driver_acknowledged"
	BidStatusDriverDeclined     BidStatus = "driver_declined"
	BidStatusExpired            BidStatus = "expired"
)

var validBidStatuses = []BidStatus{
	BidStatusPending,
	BidStatusAdminApproved,
	BidStatusCargoOwnerSelected,
	BidStatusDriverAcknowledged,
	BidStatusDriverDeclined,
	BidStatusExpired,
}

// String implements fmt.Stringer.
func (b BidStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BidStatus.
func (b BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsAccepted reports whether the bid currently holds the order. At most one
// bid per order may be in an accepted state at any time.
func (b BidStatus) IsAccepted() bool {
	return b == BidStatusCargoOwnerSelected || b == BidStatusDriverAcknowledged
}

// IsTerminal reports whether the bid can no longer change state.
func (b BidStatus) IsTerminal() bool {
	return b == BidStatusDriverDeclined || b == BidStatusExpired
}

// ParseBidStatus converts raw input into a BidStatus.
func ParseBidStatus(value string) (BidStatus, error) {
	for _, candidate := range validBidStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid status %q", value)
}
