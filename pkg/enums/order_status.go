package enums

import "fmt"

// OrderStatus tracks the lifecycle of a cargo order.
type OrderStatus string

const (
	OrderStatusDraft              OrderStatus = "draft"
	OrderStatusOpenForBidding     OrderStatus = "open_for_bidding"
	OrderStatusBiddingInProgress  OrderStatus = "bidding_in_progress"
	OrderStatusDriverSelected     OrderStatus = "driver_selected"
	OrderStatusDriverAcknowledged OrderStatus = "driver_acknowledged"
	OrderStatusReadyForPickup     OrderStatus = "ready_for_pickup"
	OrderStatusInTransit          OrderStatus = "in_transit"
	OrderStatusDelivered          OrderStatus = "delivered"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusOpenForBidding,
	OrderStatusBiddingInProgress,
	OrderStatusDriverSelected,
	OrderStatusDriverAcknowledged,
	OrderStatusReadyForPickup,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order can no longer change state.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCancelled
}

// HasAcceptedBid reports whether an order in this state must carry a non-nil
// accepted bid reference.
func (o OrderStatus) HasAcceptedBid() bool {
	switch o {
	case OrderStatusDriverSelected,
		OrderStatusDriverAcknowledged,
		OrderStatusReadyForPickup,
		OrderStatusInTransit,
		OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
