package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/internal/bids"
	"github.com/loadhub-io/loadhub-backend/internal/identity"
	"github.com/loadhub-io/loadhub-backend/internal/notify"
	"github.com/loadhub-io/loadhub-backend/internal/orders"
	"github.com/loadhub-io/loadhub-backend/internal/payments"
	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service routes an accepted bid to the owner's payment rail. Shippers pay
// upfront by card, gated on external confirmation; brokers accept immediately
// against an invoice with payment terms.
type Service interface {
	SelectBid(ctx context.Context, input SelectBidInput) (*SelectBidResult, error)
	ConfirmPayment(ctx context.Context, intentID string) (*models.CargoOrder, error)
}

type service struct {
	orderRepo orders.Repository
	bidRepo   bids.Repository
	idRepo    identity.Repository
	rail      payments.PaymentRail
	tx        txRunner
	notifier  notify.Notifier
	cfg       config.SettlementConfig
	now       func() time.Time
}

// ServiceParams collects the settlement dependencies.
type ServiceParams struct {
	OrderRepo         orders.Repository
	BidRepo           bids.Repository
	IdentityRepo      identity.Repository
	PaymentRail       payments.PaymentRail
	TransactionRunner txRunner
	Notifier          notify.Notifier
	Settlement        config.SettlementConfig
	Now               func() time.Time
}

// NewService wires the settlement router dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository required")
	}
	if params.BidRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bid repository required")
	}
	if params.IdentityRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity repository required")
	}
	if params.PaymentRail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment rail required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orderRepo: params.OrderRepo,
		bidRepo:   params.BidRepo,
		idRepo:    params.IdentityRepo,
		rail:      params.PaymentRail,
		tx:        params.TransactionRunner,
		notifier:  params.Notifier,
		cfg:       params.Settlement,
		now:       now,
	}, nil
}

// SelectBidInput identifies the bid the owner accepts.
type SelectBidInput struct {
	OrderID uuid.UUID
	BidID   uuid.UUID
	OwnerID uuid.UUID
}

// SelectBidResult reports what the router decided. ClientSecret is set only
// on the upfront path, where payment confirmation still gates the order.
type SelectBidResult struct {
	Order           *models.CargoOrder `json:"order"`
	Bid             *models.Bid        `json:"bid"`
	RequiresPayment bool               `json:"requires_payment"`
	ClientSecret    string             `json:"client_secret,omitempty"`
}

// feeBreakdown is the owner-facing charge derived from the accepted bid.
type feeBreakdown struct {
	SystemFee decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

func (s *service) breakdown(bidAmount decimal.Decimal) feeBreakdown {
	systemFee := money.ApplyRate(bidAmount, s.cfg.SystemFeeRate)
	tax := money.ApplyRate(bidAmount.Add(systemFee), s.cfg.TaxRate)
	return feeBreakdown{
		SystemFee: systemFee,
		Tax:       tax,
		Total:     money.Sum(bidAmount, systemFee, tax),
	}
}

func (s *service) SelectBid(ctx context.Context, input SelectBidInput) (*SelectBidResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.BidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}

	// Validate outside the write path so the external intent call never
	// happens for a selection that cannot proceed.
	order, bid, owner, err := s.validateSelection(ctx, input)
	if err != nil {
		return nil, err
	}

	fees := s.breakdown(bid.Amount)

	switch owner.Type {
	case enums.OwnerTypeShipper:
		return s.selectUpfront(ctx, input, order, bid, fees)
	case enums.OwnerTypeBroker:
		return s.selectInvoice(ctx, input, bid, fees)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown owner type %q", owner.Type))
	}
}

func (s *service) validateSelection(ctx context.Context, input SelectBidInput) (*models.CargoOrder, *models.Bid, *models.CargoOwner, error) {
	order, err := s.orderRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if input.OwnerID != uuid.Nil && order.OwnerID != input.OwnerID {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
	}
	if order.Status != enums.OrderStatusBiddingInProgress {
		return nil, nil, nil, selectionError(order, "selection requires bidding in progress")
	}

	bid, err := s.bidRepo.FindByID(ctx, input.BidID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeBidNotFound, "bid not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
	}
	if bid.OrderID != order.ID {
		return nil, nil, nil, selectionError(order, "bid does not belong to order")
	}
	if bid.Status != enums.BidStatusPending && bid.Status != enums.BidStatusAdminApproved {
		return nil, nil, nil, selectionError(order, fmt.Sprintf("bid is %s, not selectable", bid.Status))
	}

	owner, err := s.idRepo.FindOwner(ctx, order.OwnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cargo owner not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cargo owner")
	}
	return order, bid, owner, nil
}

func selectionError(order *models.CargoOrder, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidBidSelection, message).
		WithDetails(map[string]string{
			"order_status": order.Status.String(),
		})
}

// selectUpfront runs the shipper path: create the payment intent first, then
// persist the pending selection. The order does not advance and sibling bids
// stay live until confirmation arrives, so an unpaid selection never locks a
// driver.
func (s *service) selectUpfront(ctx context.Context, input SelectBidInput, order *models.CargoOrder, bid *models.Bid, fees feeBreakdown) (*SelectBidResult, error) {
	if order.IsPaid {
		// The owner already paid for an earlier selection that the driver
		// declined. The collected funds cover the rerun, so the order
		// advances without a second charge.
		return s.selectWithCollectedPayment(ctx, input)
	}

	intent, err := s.rail.CreatePaymentIntent(ctx, payments.CreateIntentInput{
		OrderID: order.ID,
		OwnerID: order.OwnerID,
		Amount:  fees.Total,
	})
	if err != nil {
		return nil, err
	}

	var result *SelectBidResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, lockedBid, err := s.relock(ctx, tx, input)
		if err != nil {
			return err
		}

		method := enums.PaymentMethodCard
		locked.TotalAmount = lockedBid.Amount
		locked.SystemFee = fees.SystemFee
		locked.Tax = fees.Tax
		locked.PaymentMethod = &method
		locked.PaymentIntentID = &intent.ID

		lockedBid.Status = enums.BidStatusCargoOwnerSelected

		if err := s.bidRepo.WithTx(tx).Update(ctx, lockedBid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid")
		}
		if err := s.orderRepo.WithTx(tx).Update(ctx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		result = &SelectBidResult{
			Order:           locked,
			Bid:             lockedBid,
			RequiresPayment: true,
			ClientSecret:    intent.ClientSecret,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// selectWithCollectedPayment completes a shipper reselection against money
// that already moved. The original fee fields stay as charged; only the bid
// reference and amount change.
func (s *service) selectWithCollectedPayment(ctx context.Context, input SelectBidInput) (*SelectBidResult, error) {
	var result *SelectBidResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, lockedBid, err := s.relock(ctx, tx, input)
		if err != nil {
			return err
		}
		if !locked.IsPaid {
			return selectionError(locked, "order is no longer prepaid")
		}

		locked.TotalAmount = lockedBid.Amount
		locked.Status = enums.OrderStatusDriverSelected
		locked.AcceptedBidID = &lockedBid.ID

		lockedBid.Status = enums.BidStatusCargoOwnerSelected

		if err := s.bidRepo.WithTx(tx).Update(ctx, lockedBid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid")
		}
		if err := s.bidRepo.WithTx(tx).ExpireSiblings(ctx, locked.ID, lockedBid.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire sibling bids")
		}
		if err := s.orderRepo.WithTx(tx).Update(ctx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		result = &SelectBidResult{Order: locked, Bid: lockedBid}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyDriverSelected(ctx, result.Order, result.Bid)
	return result, nil
}

// selectInvoice runs the broker path: the order advances immediately and the
// owner owes an invoice due after the configured term.
func (s *service) selectInvoice(ctx context.Context, input SelectBidInput, bid *models.Bid, fees feeBreakdown) (*SelectBidResult, error) {
	var result *SelectBidResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, lockedBid, err := s.relock(ctx, tx, input)
		if err != nil {
			return err
		}

		method := enums.PaymentMethodInvoice
		dueDate := s.now().UTC().AddDate(0, 0, s.cfg.InvoiceTermDays)
		locked.TotalAmount = lockedBid.Amount
		locked.SystemFee = fees.SystemFee
		locked.Tax = fees.Tax
		locked.PaymentMethod = &method
		locked.PaymentDueDate = &dueDate
		locked.Status = enums.OrderStatusDriverSelected
		locked.AcceptedBidID = &lockedBid.ID

		lockedBid.Status = enums.BidStatusCargoOwnerSelected

		if err := s.bidRepo.WithTx(tx).Update(ctx, lockedBid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid")
		}
		if err := s.bidRepo.WithTx(tx).ExpireSiblings(ctx, locked.ID, lockedBid.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire sibling bids")
		}
		if err := s.orderRepo.WithTx(tx).Update(ctx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		result = &SelectBidResult{Order: locked, Bid: lockedBid}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyDriverSelected(ctx, result.Order, result.Bid)
	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventInvoiceIssued,
		RecipientID: result.Order.OwnerID,
		OrderID:     &result.Order.ID,
		Attributes:  map[string]string{"total": result.Order.ChargeTotal().String()},
	})
	return result, nil
}

// relock re-validates order and bid under the row lock. The pre-flight check
// ran without one, so a concurrent selection may have won in between.
func (s *service) relock(ctx context.Context, tx *gorm.DB, input SelectBidInput) (*models.CargoOrder, *models.Bid, error) {
	locked, err := s.orderRepo.WithTx(tx).FindByIDForUpdate(ctx, input.OrderID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	if locked.Status != enums.OrderStatusBiddingInProgress {
		return nil, nil, selectionError(locked, "selection requires bidding in progress")
	}
	lockedBid, err := s.bidRepo.WithTx(tx).FindByIDForUpdate(ctx, input.BidID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock bid")
	}
	if lockedBid.OrderID != locked.ID {
		return nil, nil, selectionError(locked, "bid does not belong to order")
	}
	if lockedBid.Status != enums.BidStatusPending && lockedBid.Status != enums.BidStatusAdminApproved {
		return nil, nil, selectionError(locked, fmt.Sprintf("bid is %s, not selectable", lockedBid.Status))
	}
	return locked, lockedBid, nil
}

// ConfirmPayment is the webhook-driven completion of the shipper path. It is
// idempotent: a repeated confirmation for an already-advanced order is a
// no-op.
func (s *service) ConfirmPayment(ctx context.Context, intentID string) (*models.CargoOrder, error) {
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}

	var confirmed *models.CargoOrder
	var bid *models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.FindByPaymentIntentID(ctx, intentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment intent")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by intent")
		}

		order, err = orderRepo.FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status != enums.OrderStatusBiddingInProgress {
			if order.IsPaid {
				// Replayed confirmation for an order that already advanced,
				// or one that reopened after a paid decline. Either way the
				// money already moved; nothing to do.
				confirmed = order
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment confirmed for order in %s", order.Status))
		}

		bidRepo := s.bidRepo.WithTx(tx)
		selected, err := bidRepo.FindSelectedByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if order.IsPaid {
					// A stale webhook caught the order mid-rebid after a
					// paid decline. The funds stay held for the rerun.
					confirmed = order
					return nil
				}
				return pkgerrors.New(pkgerrors.CodeBidNotFound, "no selected bid for paid order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load selected bid")
		}

		order.IsPaid = true
		order.Status = enums.OrderStatusDriverSelected
		order.AcceptedBidID = &selected.ID

		if err := bidRepo.ExpireSiblings(ctx, order.ID, selected.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire sibling bids")
		}
		if err := orderRepo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		confirmed = order
		bid = selected
		return nil
	})
	if err != nil {
		return nil, err
	}

	if bid != nil {
		s.notifier.Notify(ctx, notify.Event{
			Type:        notify.EventPaymentConfirmed,
			RecipientID: confirmed.OwnerID,
			OrderID:     &confirmed.ID,
		})
		s.notifyDriverSelected(ctx, confirmed, bid)
	}
	return confirmed, nil
}

func (s *service) notifyDriverSelected(ctx context.Context, order *models.CargoOrder, bid *models.Bid) {
	truck, err := s.idRepo.FindTruck(ctx, bid.TruckID)
	if err != nil {
		return
	}
	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventBidSelected,
		RecipientID: truck.DriverID,
		OrderID:     &order.ID,
		Attributes:  map[string]string{"amount": bid.Amount.String()},
	})
}
