package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/loadhub-io/loadhub-backend/api/middleware"
	"github.com/loadhub-io/loadhub-backend/api/responses"
	"github.com/loadhub-io/loadhub-backend/api/validators"
	"github.com/loadhub-io/loadhub-backend/internal/settlement"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

type bidSelectRequest struct {
	BidID uuid.UUID `json:"bid_id" validate:"required"`
}

// BidSelect accepts one bid on behalf of the order owner. Shippers get a
// payment intent back and the order advances once the charge confirms;
// brokers are invoiced and the order advances immediately.
func BidSelect(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bidSelectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SelectBid(r.Context(), settlement.SelectBidInput{
			OrderID: orderID,
			BidID:   req.BidID,
			OwnerID: middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
