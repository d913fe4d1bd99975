package cancellations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/internal/bids"
	"github.com/loadhub-io/loadhub-backend/internal/notify"
	"github.com/loadhub-io/loadhub-backend/internal/orders"
	"github.com/loadhub-io/loadhub-backend/internal/wallets"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns order cancellation: penalty quoting, the cancellation record,
// and refund routing back through the owner's wallet or invoice void.
type Service interface {
	Preview(ctx context.Context, orderID uuid.UUID) (*Quote, error)
	Cancel(ctx context.Context, input CancelInput) (*models.OrderCancellation, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.OrderCancellation, error)
}

type service struct {
	repo      Repository
	orderRepo orders.Repository
	bidRepo   bids.Repository
	wallets   wallets.Service
	tx        txRunner
	notifier  notify.Notifier
	now       func() time.Time
}

// ServiceParams collects the cancellation dependencies.
type ServiceParams struct {
	Repo              Repository
	OrderRepo         orders.Repository
	BidRepo           bids.Repository
	Wallets           wallets.Service
	TransactionRunner txRunner
	Notifier          notify.Notifier
	Now               func() time.Time
}

// NewService wires the cancellation dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cancellation repository required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository required")
	}
	if params.BidRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bid repository required")
	}
	if params.Wallets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet service required")
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
		repo:      params.Repo,
		orderRepo: params.OrderRepo,
		bidRepo:   params.BidRepo,
		wallets:   params.Wallets,
		tx:        params.TransactionRunner,
		notifier:  params.Notifier,
		now:       now,
	}, nil
}

// CancelInput confirms a cancellation. AcknowledgePenalty must be set when
// the quoted penalty is non-zero.
type CancelInput struct {
	OrderID            uuid.UUID
	CancelledByID      uuid.UUID
	AcknowledgePenalty bool
}

// Preview quotes the cancellation without mutating anything.
func (s *service) Preview(ctx context.Context, orderID uuid.UUID) (*Quote, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	quote, err := QuotePenalty(order.Status, order.AcceptedBidID != nil, order.TotalAmount)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.OrderCancellation, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CancelledByID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}

	var record *models.OrderCancellation
	var order *models.CargoOrder
	var refunded bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := orderRepo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		quote, err := QuotePenalty(locked.Status, locked.AcceptedBidID != nil, locked.TotalAmount)
		if err != nil {
			return err
		}
		if quote.PenaltyAmount.IsPositive() && !input.AcknowledgePenalty {
			return pkgerrors.New(pkgerrors.CodePenaltyAckRequired,
				fmt.Sprintf("cancellation carries a %s penalty that must be acknowledged", quote.PenaltyAmount)).
				WithDetails(map[string]string{
					"penalty_amount": quote.PenaltyAmount.String(),
					"refund_amount":  quote.RefundAmount.String(),
				})
		}

		now := s.now().UTC()
		record = &models.OrderCancellation{
			OrderID:              locked.ID,
			StatusAtCancellation: locked.Status,
			CancelledByID:        input.CancelledByID,
			TotalAmount:          locked.TotalAmount,
			PenaltyPercentage:    quote.PenaltyPercentage,
			PenaltyAmount:        quote.PenaltyAmount,
			RefundAmount:         quote.RefundAmount,
			Justification:        quote.Justification,
			ProcessedAt:          &now,
		}

		switch {
		case locked.IsPaid && quote.RefundAmount.IsPositive():
			// Refunds always land in the owner wallet, never back on the
			// card rail.
			if _, err := s.wallets.Credit(ctx, tx, wallets.EntryInput{
				UserID:         locked.OwnerID,
				Kind:           models.WalletKindCargoOwner,
				Amount:         quote.RefundAmount,
				Type:           enums.WalletTransactionTypeRefund,
				Description:    fmt.Sprintf("refund for cancelled order %s", locked.ID),
				RelatedOrderID: &locked.ID,
			}); err != nil {
				return err
			}
			record.RefundMethod = enums.RefundMethodWalletCredit
			record.Status = enums.CancellationStatusRefunded
			refunded = true
		case !locked.IsPaid && locked.PaymentMethod != nil && *locked.PaymentMethod == enums.PaymentMethodInvoice:
			record.RefundMethod = enums.RefundMethodInvoiceVoid
			record.Status = enums.CancellationStatusVoided
		default:
			record.RefundMethod = enums.RefundMethodNone
			record.Status = enums.CancellationStatusNoRefund
		}

		if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cancellation record")
		}

		if err := s.releaseBids(ctx, tx, locked); err != nil {
			return err
		}

		locked.Status = enums.OrderStatusCancelled
		locked.CancelledAt = &now
		locked.AcceptedBidID = nil
		if err := orderRepo.Update(ctx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventOrderCancelled,
		RecipientID: order.OwnerID,
		OrderID:     &order.ID,
	})
	if refunded {
		s.notifier.Notify(ctx, notify.Event{
			Type:        notify.EventRefundIssued,
			RecipientID: order.OwnerID,
			OrderID:     &order.ID,
			Attributes:  map[string]string{"amount": record.RefundAmount.String()},
		})
	}
	return record, nil
}

// releaseBids expires every live bid on the cancelled order, including an
// accepted one. The cancellation record keeps the audit trail.
func (s *service) releaseBids(ctx context.Context, tx *gorm.DB, order *models.CargoOrder) error {
	bidRepo := s.bidRepo.WithTx(tx)

	if order.AcceptedBidID != nil {
		accepted, err := bidRepo.FindByID(ctx, *order.AcceptedBidID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted bid")
		}
		if accepted != nil && !accepted.Status.IsTerminal() {
			accepted.Status = enums.BidStatusExpired
			if err := bidRepo.Update(ctx, accepted); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire accepted bid")
			}
		}
	}
	if err := bidRepo.ExpireSiblings(ctx, order.ID, uuid.Nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire bids")
	}
	return nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.OrderCancellation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	record, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cancellation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cancellation")
	}
	return record, nil
}
