package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/loadhub-io/loadhub-backend/api/responses"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

// PaymentConfirmer advances an order once its upfront charge settles. The
// confirmation is idempotent, so Stripe retries are safe.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, intentID string) (*models.CargoOrder, error)
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook verifies and dispatches Stripe payment events.
func StripeWebhook(confirmer PaymentConfirmer, client stripeClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if confirmer == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify signature"))
			return
		}

		switch event.Type {
		case "payment_intent.succeeded":
			var intent stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent"))
				return
			}

			order, err := confirmer.ConfirmPayment(ctx, intent.ID)
			if err != nil {
				// An intent we never issued is acknowledged, not retried.
				if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
					if logg != nil {
						fctx := logg.WithField(ctx, "payment_intent_id", intent.ID)
						logg.Warn(fctx, "stripe event for unknown payment intent")
					}
					responses.WriteSuccess(w, nil)
					return
				}
				responses.WriteError(ctx, logg, w, err)
				return
			}

			if logg != nil {
				fctx := logg.WithFields(ctx, map[string]any{
					"event_id":          event.ID,
					"payment_intent_id": intent.ID,
					"order_id":          order.ID.String(),
				})
				logg.Info(fctx, "payment confirmed via webhook")
			}

		case "payment_intent.payment_failed":
			var intent stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent"))
				return
			}
			// The order stays in bidding until the owner retries or cancels.
			if logg != nil {
				fctx := logg.WithField(ctx, "payment_intent_id", intent.ID)
				logg.Warn(fctx, "upfront payment failed")
			}

		default:
			if logg != nil {
				fctx := logg.WithField(ctx, "event_type", string(event.Type))
				logg.Info(fctx, "stripe event ignored")
			}
		}

		responses.WriteSuccess(w, nil)
	}
}
