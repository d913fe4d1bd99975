package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/api/middleware"
	"github.com/loadhub-io/loadhub-backend/api/responses"
	"github.com/loadhub-io/loadhub-backend/api/validators"
	"github.com/loadhub-io/loadhub-backend/internal/bids"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

type bidSubmitRequest struct {
	TruckID uuid.UUID       `json:"truck_id" validate:"required"`
	Amount  decimal.Decimal `json:"amount" validate:"required"`
}

// BidSubmit places or lowers a bid on an open order. The submitter type is
// derived from the caller's role.
func BidSubmit(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bid service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bidSubmitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var submitter enums.BidSubmitterType
		switch middleware.RoleFromContext(r.Context()) {
		case string(enums.ActorRoleDriver):
			submitter = enums.BidSubmitterDriver
		case string(enums.ActorRoleDispatcher):
			submitter = enums.BidSubmitterDispatcher
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only drivers and dispatchers bid"))
			return
		}

		bid, err := svc.SubmitOrUpdate(r.Context(), bids.SubmitBidInput{
			OrderID:       orderID,
			TruckID:       req.TruckID,
			Amount:        req.Amount,
			SubmitterType: submitter,
			ActorID:       middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

// BidList returns all bids placed on an order.
func BidList(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bid service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type commissionSetRequest struct {
	DriverID uuid.UUID       `json:"driver_id" validate:"required"`
	Rate     decimal.Decimal `json:"rate"`
}

// CommissionSet opens a new commission agreement between the authenticated
// dispatcher and a driver, closing any prior one.
func CommissionSet(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bid service unavailable"))
			return
		}

		var req commissionSetRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commission, err := svc.SetCommission(r.Context(), bids.SetCommissionInput{
			DriverID:     req.DriverID,
			DispatcherID: middleware.ActorIDFromContext(r.Context()),
			Rate:         req.Rate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, commission)
	}
}

// CommissionActive returns the open agreement with one driver, if any.
func CommissionActive(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bid service unavailable"))
			return
		}

		driverID, err := validators.ParseURLUUID(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commission, err := svc.ActiveCommission(r.Context(), driverID, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, commission)
	}
}

// CommissionHistory lists every agreement with one driver, newest first.
func CommissionHistory(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bid service unavailable"))
			return
		}

		driverID, err := validators.ParseURLUUID(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.CommissionHistory(r.Context(), driverID, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, history)
	}
}
