package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/internal/bids"
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

// Service owns the cargo-order state machine. Every transition validates the
// source state under a row lock and reports expected vs observed on refusal.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.CargoOrder, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.CargoOrder, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, status *enums.OrderStatus) ([]models.CargoOrder, error)
	OpenForBidding(ctx context.Context, orderID, ownerID uuid.UUID) (*models.CargoOrder, error)
	AcknowledgeSelection(ctx context.Context, input AcknowledgeSelectionInput) (*models.CargoOrder, error)
	StartOrder(ctx context.Context, orderID, driverID uuid.UUID) (*models.CargoOrder, error)
	UploadManifest(ctx context.Context, input DocumentsInput) (*models.CargoOrder, error)
	CompleteDelivery(ctx context.Context, input DocumentsInput) (*models.CargoOrder, error)
	RecordLocation(ctx context.Context, input RecordLocationInput) error
	ListLocations(ctx context.Context, orderID uuid.UUID) ([]models.OrderLocation, error)
	SetFlag(ctx context.Context, orderID uuid.UUID, flagged bool) error
}

type service struct {
	repo     Repository
	bidRepo  bids.Repository
	idRepo   identity.Repository
	tx       txRunner
	notifier notify.Notifier
	cfg      config.SettlementConfig
	now      func() time.Time
}

// ServiceParams collects the order service dependencies.
type ServiceParams struct {
	Repo              Repository
	BidRepo           bids.Repository
	IdentityRepo      identity.Repository
	TransactionRunner txRunner
	Notifier          notify.Notifier
	Settlement        config.SettlementConfig
	Now               func() time.Time
}

// NewService wires the order state machine dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository required")
	}
	if params.BidRepo == nil {
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
		bidRepo:  params.BidRepo,
		idRepo:   params.IdentityRepo,
		tx:       params.TransactionRunner,
		notifier: params.Notifier,
		cfg:      params.Settlement,
		now:      now,
	}, nil
}

// CreateOrderInput carries what a cargo owner provides for a new draft order.
type CreateOrderInput struct {
	OwnerID                uuid.UUID
	PickupAddress          string
	PickupLatitude         *decimal.Decimal
	PickupLongitude        *decimal.Decimal
	DeliveryAddress        string
	DeliveryLatitude       *decimal.Decimal
	DeliveryLongitude      *decimal.Decimal
	CargoDescription       string
	WeightKg               *decimal.Decimal
	ExpectedPickupDateTime *time.Time
}

// AcknowledgeSelectionInput is the driver's response to being selected.
type AcknowledgeSelectionInput struct {
	OrderID  uuid.UUID
	DriverID uuid.UUID
	Accepted bool
}

// DocumentsInput carries document references for manifest upload or delivery
// completion.
type DocumentsInput struct {
	OrderID      uuid.UUID
	DriverID     uuid.UUID
	DocumentURLs []string
}

// RecordLocationInput is one location ping from the assigned driver.
type RecordLocationInput struct {
	OrderID    uuid.UUID
	DriverID   uuid.UUID
	Latitude   decimal.Decimal
	Longitude  decimal.Decimal
	RecordedAt time.Time
}

// requireStatus refuses a transition whose source state is wrong, naming the
// operation, the states it accepts and the state observed.
func requireStatus(op string, order *models.CargoOrder, expected ...enums.OrderStatus) error {
	for _, status := range expected {
		if order.Status == status {
			return nil
		}
	}
	names := make([]string, 0, len(expected))
	for _, status := range expected {
		names = append(names, status.String())
	}
	return pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
		fmt.Sprintf("%s requires status %s, order is %s", op, strings.Join(names, " or "), order.Status)).
		WithDetails(map[string]string{
			"operation": op,
			"expected":  strings.Join(names, ","),
			"observed":  order.Status.String(),
		})
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.CargoOrder, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if strings.TrimSpace(input.PickupAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup address required")
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if input.WeightKg != nil {
		if err := money.RequirePositive("weight", *input.WeightKg); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid weight")
		}
	}

	order := &models.CargoOrder{
		OwnerID:                input.OwnerID,
		Status:                 enums.OrderStatusDraft,
		PickupAddress:          input.PickupAddress,
		PickupLatitude:         input.PickupLatitude,
		PickupLongitude:        input.PickupLongitude,
		DeliveryAddress:        input.DeliveryAddress,
		DeliveryLatitude:       input.DeliveryLatitude,
		DeliveryLongitude:      input.DeliveryLongitude,
		CargoDescription:       input.CargoDescription,
		WeightKg:               input.WeightKg,
		TotalAmount:            decimal.Zero,
		SystemFee:              decimal.Zero,
		Tax:                    decimal.Zero,
		ExpectedPickupDateTime: input.ExpectedPickupDateTime,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.CargoOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByIDWithBids(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID, status *enums.OrderStatus) ([]models.CargoOrder, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	return s.repo.ListByOwner(ctx, ownerID, status)
}

func (s *service) OpenForBidding(ctx context.Context, orderID, ownerID uuid.UUID) (*models.CargoOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var updated *models.CargoOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if ownerID != uuid.Nil && order.OwnerID != ownerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
		}
		if err := requireStatus("open for bidding", order, enums.OrderStatusDraft); err != nil {
			return err
		}

		order.Status = enums.OrderStatusOpenForBidding
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventOrderOpened,
		RecipientID: updated.OwnerID,
		OrderID:     &updated.ID,
	})
	return updated, nil
}

func (s *service) AcknowledgeSelection(ctx context.Context, input AcknowledgeSelectionInput) (*models.CargoOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}

	var updated *models.CargoOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := requireStatus("acknowledge selection", order, enums.OrderStatusDriverSelected); err != nil {
			return err
		}

		bid, err := s.acceptedBid(ctx, tx, order)
		if err != nil {
			return err
		}
		if err := s.requireTruckOwner(ctx, tx, bid.TruckID, input.DriverID); err != nil {
			return err
		}

		bidRepo := s.bidRepo.WithTx(tx)
		if input.Accepted {
			now := s.now().UTC()
			bid.Status = enums.BidStatusDriverAcknowledged
			bid.DriverAcknowledgedAt = &now
			order.Status = enums.OrderStatusDriverAcknowledged
		} else {
			// Decline reopens the order for bidding and releases the bid.
			bid.Status = enums.BidStatusDriverDeclined
			order.Status = enums.OrderStatusOpenForBidding
			order.AcceptedBidID = nil
			order.ExpectedPickupDateTime = nil
		}

		if err := bidRepo.Update(ctx, bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid")
		}
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventOrderAcknowledged,
		RecipientID: updated.OwnerID,
		OrderID:     &updated.ID,
		Attributes:  map[string]string{"accepted": fmt.Sprintf("%t", input.Accepted)},
	})
	return updated, nil
}

func (s *service) StartOrder(ctx context.Context, orderID, driverID uuid.UUID) (*models.CargoOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}

	var updated *models.CargoOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := requireStatus("start order", order, enums.OrderStatusDriverAcknowledged); err != nil {
			return err
		}

		bid, err := s.acceptedBid(ctx, tx, order)
		if err != nil {
			return err
		}
		if err := s.requireTruckOwner(ctx, tx, bid.TruckID, driverID); err != nil {
			return err
		}

		order.Status = enums.OrderStatusReadyForPickup
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventOrderReady,
		RecipientID: updated.OwnerID,
		OrderID:     &updated.ID,
	})
	return updated, nil
}

func (s *service) UploadManifest(ctx context.Context, input DocumentsInput) (*models.CargoOrder, error) {
	if len(input.DocumentURLs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one manifest document required")
	}

	var updated *models.CargoOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := requireStatus("upload manifest", order, enums.OrderStatusReadyForPickup); err != nil {
			return err
		}

		bid, err := s.acceptedBid(ctx, tx, order)
		if err != nil {
			return err
		}
		if err := s.requireTruckOwner(ctx, tx, bid.TruckID, input.DriverID); err != nil {
			return err
		}

		for _, url := range input.DocumentURLs {
			doc := &models.OrderDocument{
				OrderID: order.ID,
				Kind:    models.OrderDocumentKindManifest,
				URL:     url,
			}
			if err := repo.CreateDocument(ctx, doc); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store manifest document")
			}
		}

		now := s.now().UTC()
		order.Status = enums.OrderStatusInTransit
		order.ActualPickupDateTime = &now
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventOrderInTransit,
		RecipientID: updated.OwnerID,
		OrderID:     &updated.ID,
	})
	return updated, nil
}

func (s *service) CompleteDelivery(ctx context.Context, input DocumentsInput) (*models.CargoOrder, error) {
	if len(input.DocumentURLs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one delivery document required")
	}

	var updated *models.CargoOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := requireStatus("complete delivery", order, enums.OrderStatusInTransit); err != nil {
			return err
		}

		bid, err := s.acceptedBid(ctx, tx, order)
		if err != nil {
			return err
		}
		if err := s.requireTruckOwner(ctx, tx, bid.TruckID, input.DriverID); err != nil {
			return err
		}

		for _, url := range input.DocumentURLs {
			doc := &models.OrderDocument{
				OrderID: order.ID,
				Kind:    models.OrderDocumentKindDelivery,
				URL:     url,
			}
			if err := repo.CreateDocument(ctx, doc); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store delivery document")
			}
		}

		earnings := s.finalizeEarnings(bid)
		if bid.DriverEarnings == nil {
			bid.DriverEarnings = &earnings
			if err := s.bidRepo.WithTx(tx).Update(ctx, bid); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid earnings")
			}
		}

		now := s.now().UTC()
		order.Status = enums.OrderStatusDelivered
		order.DeliveryDateTime = &now
		order.DriverEarnings = &earnings
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventOrderDelivered,
		RecipientID: updated.OwnerID,
		OrderID:     &updated.ID,
	})
	return updated, nil
}

// finalizeEarnings resolves the driver's take for a delivered order.
// Dispatcher bids carry the split computed at submission; direct driver bids
// pay out the bid amount minus the platform fee.
func (s *service) finalizeEarnings(bid *models.Bid) decimal.Decimal {
	if bid.DriverEarnings != nil {
		return *bid.DriverEarnings
	}
	fee := money.ApplyRate(bid.Amount, s.cfg.PlatformFeeRate)
	return bid.Amount.Sub(fee)
}

func (s *service) RecordLocation(ctx context.Context, input RecordLocationInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.DriverID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "driver identity missing")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := requireStatus("record location", order, enums.OrderStatusInTransit); err != nil {
		return err
	}

	recordedAt := input.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now().UTC()
	}
	loc := &models.OrderLocation{
		OrderID:    order.ID,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		RecordedAt: recordedAt,
	}
	if err := s.repo.CreateLocation(ctx, loc); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store location")
	}
	return nil
}

func (s *service) ListLocations(ctx context.Context, orderID uuid.UUID) ([]models.OrderLocation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.ListLocations(ctx, orderID)
}

func (s *service) SetFlag(ctx context.Context, orderID uuid.UUID, flagged bool) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.IsFlagged == flagged {
			return nil
		}
		order.IsFlagged = flagged
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order flag")
		}
		return nil
	})
}

func (s *service) loadForUpdate(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.CargoOrder, error) {
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) acceptedBid(ctx context.Context, tx *gorm.DB, order *models.CargoOrder) (*models.Bid, error) {
	if order.AcceptedBidID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeBidNotFound, "order has no accepted bid")
	}
	bid, err := s.bidRepo.WithTx(tx).FindByID(ctx, *order.AcceptedBidID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeBidNotFound, "accepted bid not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted bid")
	}
	return bid, nil
}

func (s *service) requireTruckOwner(ctx context.Context, tx *gorm.DB, truckID, driverID uuid.UUID) error {
	truck, err := s.idRepo.WithTx(tx).FindTruck(ctx, truckID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "truck not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load truck")
	}
	if truck.DriverID != driverID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "caller does not own the accepted bid's truck")
	}
	return nil
}
