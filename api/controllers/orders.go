package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/api/middleware"
	"github.com/loadhub-io/loadhub-backend/api/responses"
	"github.com/loadhub-io/loadhub-backend/api/validators"
	"github.com/loadhub-io/loadhub-backend/internal/orders"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

type orderCreateRequest struct {
	PickupAddress          string           `json:"pickup_address" validate:"required,min=1"`
	PickupLatitude         *decimal.Decimal `json:"pickup_latitude,omitempty"`
	PickupLongitude        *decimal.Decimal `json:"pickup_longitude,omitempty"`
	DeliveryAddress        string           `json:"delivery_address" validate:"required,min=1"`
	DeliveryLatitude       *decimal.Decimal `json:"delivery_latitude,omitempty"`
	DeliveryLongitude      *decimal.Decimal `json:"delivery_longitude,omitempty"`
	CargoDescription       string           `json:"cargo_description" validate:"required,min=1"`
	WeightKg               *decimal.Decimal `json:"weight_kg,omitempty"`
	ExpectedPickupDateTime *time.Time       `json:"expected_pickup_date_time,omitempty"`
}

// OrderCreate registers a draft order for the authenticated cargo owner.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var req orderCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), orders.CreateOrderInput{
			OwnerID:                middleware.ActorIDFromContext(r.Context()),
			PickupAddress:          req.PickupAddress,
			PickupLatitude:         req.PickupLatitude,
			PickupLongitude:        req.PickupLongitude,
			DeliveryAddress:        req.DeliveryAddress,
			DeliveryLatitude:       req.DeliveryLatitude,
			DeliveryLongitude:      req.DeliveryLongitude,
			CargoDescription:       req.CargoDescription,
			WeightKg:               req.WeightKg,
			ExpectedPickupDateTime: req.ExpectedPickupDateTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderList returns the authenticated owner's orders, optionally filtered by
// status.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var status *enums.OrderStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		list, err := svc.ListByOwner(r.Context(), middleware.ActorIDFromContext(r.Context()), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns one order with its bids preloaded.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderOpenForBidding publishes a draft order to the bidding board.
func OrderOpenForBidding(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.OpenForBidding(r.Context(), orderID, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type orderAcknowledgeRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

// OrderAcknowledge records the selected driver's accept or decline.
func OrderAcknowledge(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderAcknowledgeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AcknowledgeSelection(r.Context(), orders.AcknowledgeSelectionInput{
			OrderID:  orderID,
			DriverID: middleware.ActorIDFromContext(r.Context()),
			Accepted: *req.Accepted,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderStart marks a ready order as picked up and in transit.
func OrderStart(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.StartOrder(r.Context(), orderID, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type orderDocumentsRequest struct {
	DocumentURLs []string `json:"document_urls" validate:"required,min=1,dive,required,url"`
}

// OrderManifest attaches the cargo manifest after driver acknowledgment.
func OrderManifest(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return documentsHandler(svc, logg, func(svc orders.Service, r *http.Request, input orders.DocumentsInput) (any, error) {
		return svc.UploadManifest(r.Context(), input)
	})
}

// OrderDeliver completes the delivery with proof documents and finalizes the
// driver's earnings.
func OrderDeliver(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return documentsHandler(svc, logg, func(svc orders.Service, r *http.Request, input orders.DocumentsInput) (any, error) {
		return svc.CompleteDelivery(r.Context(), input)
	})
}

func documentsHandler(svc orders.Service, logg *logger.Logger, call func(orders.Service, *http.Request, orders.DocumentsInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderDocumentsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := call(svc, r, orders.DocumentsInput{
			OrderID:      orderID,
			DriverID:     middleware.ActorIDFromContext(r.Context()),
			DocumentURLs: req.DocumentURLs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type locationPingRequest struct {
	Latitude   decimal.Decimal `json:"latitude"`
	Longitude  decimal.Decimal `json:"longitude"`
	RecordedAt *time.Time      `json:"recorded_at,omitempty"`
}

// OrderLocationPing appends one tracking point from the assigned driver.
func OrderLocationPing(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req locationPingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordedAt := time.Now().UTC()
		if req.RecordedAt != nil {
			recordedAt = req.RecordedAt.UTC()
		}

		if err := svc.RecordLocation(r.Context(), orders.RecordLocationInput{
			OrderID:    orderID,
			DriverID:   middleware.ActorIDFromContext(r.Context()),
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			RecordedAt: recordedAt,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, nil)
	}
}

// OrderLocations returns the recorded tracking trail for an order.
func OrderLocations(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		locations, err := svc.ListLocations(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, locations)
	}
}

type orderFlagRequest struct {
	Flagged *bool `json:"flagged" validate:"required"`
}

// AdminOrderFlag toggles the operator review flag on an order.
func AdminOrderFlag(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderFlagRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetFlag(r.Context(), orderID, *req.Flagged); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"flagged": *req.Flagged})
	}
}
