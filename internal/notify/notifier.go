package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names the notification events the settlement engine emits.
type EventType string

const (
	EventOrderOpened       EventType = "order.opened"
	EventBidReceived       EventType = "bid.received"
	EventBidSelected       EventType = "bid.selected"
	EventBidExpired        EventType = "bid.expired"
	EventOrderAcknowledged EventType = "order.acknowledged"
	EventOrderReady        EventType = "order.ready_for_pickup"
	EventOrderInTransit    EventType = "order.in_transit"
	EventOrderDelivered    EventType = "order.delivered"
	EventOrderCancelled    EventType = "order.cancelled"
	EventPaymentConfirmed  EventType = "payment.confirmed"
	EventInvoiceIssued     EventType = "invoice.issued"
	EventRefundIssued      EventType = "refund.issued"
	EventPayoutProcessed   EventType = "payout.processed"
	EventPayoutFailed      EventType = "payout.failed"
)

// Event is one notification destined for a user. Delivery is best effort:
// core money and state operations never fail because a notification did.
type Event struct {
	Type        EventType         `json:"type"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	OrderID     *uuid.UUID        `json:"order_id,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Notifier delivers events to the notification pipeline.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}
