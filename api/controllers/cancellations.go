package controllers

import (
	"net/http"

	"github.com/loadhub-io/loadhub-backend/api/middleware"
	"github.com/loadhub-io/loadhub-backend/api/responses"
	"github.com/loadhub-io/loadhub-backend/api/validators"
	"github.com/loadhub-io/loadhub-backend/internal/cancellations"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

// CancelPreview quotes the penalty and refund without touching the order.
func CancelPreview(svc cancellations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Preview(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

type cancelOrderRequest struct {
	AcknowledgePenalty bool `json:"acknowledge_penalty"`
}

// CancelOrder cancels the order, applying the penalty tier in force and
// routing any refund to the owner's wallet.
func CancelOrder(svc cancellations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Cancel(r.Context(), cancellations.CancelInput{
			OrderID:            orderID,
			CancelledByID:      middleware.ActorIDFromContext(r.Context()),
			AcknowledgePenalty: req.AcknowledgePenalty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// CancellationDetail returns the cancellation record for an order.
func CancellationDetail(svc cancellations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}
