package bids

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/internal/identity"
	"github.com/loadhub-io/loadhub-backend/internal/notify"
	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns bid submission and the dispatcher commission ledger.
type Service interface {
	SubmitOrUpdate(ctx context.Context, input SubmitBidInput) (*models.Bid, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error)
	SetCommission(ctx context.Context, input SetCommissionInput) (*models.DispatcherCommission, error)
	ActiveCommission(ctx context.Context, driverID, dispatcherID uuid.UUID) (*models.DispatcherCommission, error)
	CommissionHistory(ctx context.Context, driverID, dispatcherID uuid.UUID) ([]models.DispatcherCommission, error)
}

type service struct {
	repo     Repository
	idRepo   identity.Repository
	tx       txRunner
	notifier notify.Notifier
	cfg      config.SettlementConfig
	now      func() time.Time
}

// ServiceParams collects the bid service dependencies.
type ServiceParams struct {
	Repo              Repository
	IdentityRepo      identity.Repository
	TransactionRunner txRunner
	Notifier          notify.Notifier
	Settlement        config.SettlementConfig
	Now               func() time.Time
}

// NewService wires the bid ledger dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bid repository required")
	}
	if params.IdentityRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity repository required")
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
		repo:     params.Repo,
		idRepo:   params.IdentityRepo,
		tx:       params.TransactionRunner,
		notifier: params.Notifier,
		cfg:      params.Settlement,
		now:      now,
	}, nil
}

// SubmitBidInput carries a new or updated offer against an order. ActorID is
// the driver for direct submissions, the dispatcher otherwise.
type SubmitBidInput struct {
	OrderID       uuid.UUID
	TruckID       uuid.UUID
	Amount        decimal.Decimal
	SubmitterType enums.BidSubmitterType
	ActorID       uuid.UUID
}

// SetCommissionInput changes the commission a dispatcher takes on one
// driver's bids.
type SetCommissionInput struct {
	DriverID     uuid.UUID
	DispatcherID uuid.UUID
	Rate         decimal.Decimal
}

func (s *service) SubmitOrUpdate(ctx context.Context, input SubmitBidInput) (*models.Bid, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.TruckID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "truck id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	if !input.SubmitterType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid submitter type %q", input.SubmitterType))
	}
	if err := money.RequirePositive("bid amount", input.Amount); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bid amount")
	}
	amount := money.Round(input.Amount)

	var saved *models.Bid
	var ownerID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusOpenForBidding && order.Status != enums.OrderStatusBiddingInProgress {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
				fmt.Sprintf("bids require status %s or %s, order is %s",
					enums.OrderStatusOpenForBidding, enums.OrderStatusBiddingInProgress, order.Status)).
				WithDetails(map[string]string{
					"operation": "submit bid",
					"expected": fmt.Sprintf("%s,%s",
						enums.OrderStatusOpenForBidding, enums.OrderStatusBiddingInProgress),
					"observed": order.Status.String(),
				})
		}
		ownerID = order.OwnerID

		driver, dispatcherID, err := s.resolveSubmitter(ctx, tx, input)
		if err != nil {
			return err
		}

		existing, err := repo.FindPendingByOrderAndTruck(ctx, input.OrderID, input.TruckID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing bid")
		}

		if existing != nil {
			// Updates must strictly lower the offer.
			if amount.GreaterThanOrEqual(existing.Amount) {
				return pkgerrors.New(pkgerrors.CodeBidNotLowered,
					fmt.Sprintf("updated bid %s must be lower than current bid %s", amount, existing.Amount)).
					WithDetails(map[string]string{
						"current_amount": existing.Amount.String(),
						"updated_amount": amount.String(),
					})
			}
			existing.Amount = amount
			// The update takes over the bid outright, so attribution
			// follows the latest submitter.
			existing.SubmitterType = input.SubmitterType
			existing.DispatcherID = dispatcherID
			if err := s.applyCommission(ctx, tx, existing, driver.ID, dispatcherID); err != nil {
				return err
			}
			if err := repo.Update(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid")
			}
			saved = existing
			return nil
		}

		bid := &models.Bid{
			OrderID:       order.ID,
			TruckID:       input.TruckID,
			Amount:        amount,
			Status:        enums.BidStatusPending,
			SubmitterType: input.SubmitterType,
			DispatcherID:  dispatcherID,
		}
		if err := s.applyCommission(ctx, tx, bid, driver.ID, dispatcherID); err != nil {
			return err
		}
		if err := repo.Create(ctx, bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
		}

		// First bid moves the order into bidding.
		if order.Status == enums.OrderStatusOpenForBidding {
			order.Status = enums.OrderStatusBiddingInProgress
			if err := repo.UpdateOrder(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
			}
		}
		saved = bid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventBidReceived,
		RecipientID: ownerID,
		OrderID:     &saved.OrderID,
		Attributes:  map[string]string{"amount": saved.Amount.String()},
	})
	return saved, nil
}

// resolveSubmitter validates the actor against the truck and returns the
// truck's driver and the dispatcher reference when relevant.
func (s *service) resolveSubmitter(ctx context.Context, tx *gorm.DB, input SubmitBidInput) (*models.Driver, *uuid.UUID, error) {
	idRepo := s.idRepo.WithTx(tx)

	truck, err := idRepo.FindTruck(ctx, input.TruckID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "truck not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load truck")
	}
	if !truck.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "truck is inactive")
	}

	driver, err := idRepo.FindDriver(ctx, truck.DriverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	if !driver.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "driver is inactive")
	}

	switch input.SubmitterType {
	case enums.BidSubmitterDriver:
		if driver.ID != input.ActorID {
			return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller does not own this truck")
		}
		return driver, nil, nil
	case enums.BidSubmitterDispatcher:
		dispatcher, err := idRepo.FindDispatcher(ctx, input.ActorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispatcher not found")
			}
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispatcher")
		}
		if !dispatcher.IsActive {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "dispatcher is inactive")
		}
		return driver, &dispatcher.ID, nil
	default:
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid submitter type %q", input.SubmitterType))
	}
}

// applyCommission computes the split stored on the bid. Direct driver bids
// carry no split; the platform fee is applied at delivery instead.
func (s *service) applyCommission(ctx context.Context, tx *gorm.DB, bid *models.Bid, driverID uuid.UUID, dispatcherID *uuid.UUID) error {
	if dispatcherID == nil {
		bid.DispatcherCommissionRate = nil
		bid.DispatcherCommissionAmount = nil
		bid.DriverEarnings = nil
		return nil
	}

	rate := decimal.Zero
	commission, err := s.repo.WithTx(tx).FindActiveCommission(ctx, driverID, *dispatcherID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission")
	}
	if commission != nil {
		rate = commission.Rate
	}

	systemFee := money.ApplyRate(bid.Amount, s.cfg.SystemFeeRate)
	netAmount := bid.Amount.Sub(systemFee)
	dispatcherCut := money.ApplyRate(netAmount, rate)
	driverEarnings := netAmount.Sub(dispatcherCut)

	bid.DispatcherCommissionRate = &rate
	bid.DispatcherCommissionAmount = &dispatcherCut
	bid.DriverEarnings = &driverEarnings
	return nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *service) SetCommission(ctx context.Context, input SetCommissionInput) (*models.DispatcherCommission, error) {
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if input.DispatcherID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispatcher id required")
	}
	if input.Rate.IsNegative() || input.Rate.GreaterThan(s.cfg.DispatcherCommissionMax) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("commission rate must be within [0, %s], got %s", s.cfg.DispatcherCommissionMax, input.Rate))
	}

	var created *models.DispatcherCommission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		// History never mutates: the open record closes and a new one opens.
		active, err := repo.FindActiveCommission(ctx, input.DriverID, input.DispatcherID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission")
		}
		if active != nil {
			if err := repo.CloseCommission(ctx, active.ID, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close commission")
			}
		}

		created = &models.DispatcherCommission{
			DriverID:      input.DriverID,
			DispatcherID:  input.DispatcherID,
			Rate:          input.Rate,
			EffectiveFrom: now,
		}
		if err := repo.CreateCommission(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) ActiveCommission(ctx context.Context, driverID, dispatcherID uuid.UUID) (*models.DispatcherCommission, error) {
	commission, err := s.repo.FindActiveCommission(ctx, driverID, dispatcherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active commission for pair")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission")
	}
	return commission, nil
}

func (s *service) CommissionHistory(ctx context.Context, driverID, dispatcherID uuid.UUID) ([]models.DispatcherCommission, error) {
	return s.repo.ListCommissions(ctx, driverID, dispatcherID)
}
