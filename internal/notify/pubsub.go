package notify

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

const publishTimeout = 10 * time.Second

// PubSubNotifier publishes events to the notification topic. Publish failures
// are logged and swallowed; the caller's operation has already committed.
type PubSubNotifier struct {
	publisher *gcppubsub.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewPubSubNotifier wraps a topic publisher. A nil publisher yields a
// logging-only notifier so local environments work without GCP credentials.
func NewPubSubNotifier(publisher *gcppubsub.Publisher, logg *logger.Logger) Notifier {
	if publisher == nil {
		return NewLogNotifier(logg)
	}
	return &PubSubNotifier{
		publisher: publisher,
		logg:      logg,
		now:       time.Now,
	}
}

func (n *PubSubNotifier) Notify(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = n.now().UTC()
	}

	ctx = n.logg.WithField(ctx, "event_type", string(event.Type))

	payload, err := json.Marshal(event)
	if err != nil {
		n.logg.Error(ctx, "notification payload marshal failed", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	result := n.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type": string(event.Type),
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		n.logg.Error(ctx, "notification publish failed", err)
	}
}
