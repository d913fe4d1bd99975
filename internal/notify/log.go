package notify

import (
	"context"

	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

// LogNotifier writes events to the structured log instead of publishing.
// Used in dev and as the fallback when Pub/Sub is not configured.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) Notifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) {
	ctx = n.logg.WithFields(ctx, map[string]any{
		"event_type":   string(event.Type),
		"recipient_id": event.RecipientID.String(),
	})
	if event.OrderID != nil {
		ctx = n.logg.WithOrderID(ctx, event.OrderID.String())
	}
	n.logg.Info(ctx, "notification event")
}
