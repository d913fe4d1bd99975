package bids

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// Repository manages persistence for bids and dispatcher commission records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bid *models.Bid) error
	Update(ctx context.Context, bid *models.Bid) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	FindPendingByOrderAndTruck(ctx context.Context, orderID, truckID uuid.UUID) (*models.Bid, error)
	FindSelectedByOrder(ctx context.Context, orderID uuid.UUID) (*models.Bid, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error)
	ExpireSiblings(ctx context.Context, orderID, keptBidID uuid.UUID) error
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.CargoOrder, error)
	UpdateOrder(ctx context.Context, order *models.CargoOrder) error
	CreateCommission(ctx context.Context, commission *models.DispatcherCommission) error
	CloseCommission(ctx context.Context, id uuid.UUID, at time.Time) error
	FindActiveCommission(ctx context.Context, driverID, dispatcherID uuid.UUID) (*models.DispatcherCommission, error)
	ListCommissions(ctx context.Context, driverID, dispatcherID uuid.UUID) ([]models.DispatcherCommission, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bid repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *repository) Update(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Save(bid).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&bid, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) FindPendingByOrderAndTruck(ctx context.Context, orderID, truckID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND truck_id = ? AND status = ?", orderID, truckID, enums.BidStatusPending).
		First(&bid).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

// FindSelectedByOrder returns the bid currently holding the order, if any.
func (r *repository) FindSelectedByOrder(ctx context.Context, orderID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID,
			[]enums.BidStatus{enums.BidStatusCargoOwnerSelected, enums.BidStatusDriverAcknowledged}).
		First(&bid).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("amount ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ExpireSiblings forces every non-terminal bid on the order except the kept
// one to expired.
func (r *repository) ExpireSiblings(ctx context.Context, orderID, keptBidID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("order_id = ? AND id <> ? AND status IN ?", orderID, keptBidID,
			[]enums.BidStatus{enums.BidStatusPending, enums.BidStatusAdminApproved}).
		Update("status", enums.BidStatusExpired).Error
}

// FindOrderForUpdate locks the parent order row so bid operations against
// the same order serialize. Only meaningful inside a transaction.
func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.CargoOrder, error) {
	var order models.CargoOrder
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.CargoOrder) error {
	return r.db.WithContext(ctx).Omit("Bids").Save(order).Error
}

func (r *repository) CreateCommission(ctx context.Context, commission *models.DispatcherCommission) error {
	return r.db.WithContext(ctx).Create(commission).Error
}

func (r *repository) CloseCommission(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.DispatcherCommission{}).
		Where("id = ? AND effective_to IS NULL", id).
		Update("effective_to", at).Error
}

func (r *repository) FindActiveCommission(ctx context.Context, driverID, dispatcherID uuid.UUID) (*models.DispatcherCommission, error) {
	var commission models.DispatcherCommission
	if err := r.db.WithContext(ctx).
		Where("driver_id = ? AND dispatcher_id = ? AND effective_to IS NULL", driverID, dispatcherID).
		First(&commission).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) ListCommissions(ctx context.Context, driverID, dispatcherID uuid.UUID) ([]models.DispatcherCommission, error) {
	var out []models.DispatcherCommission
	if err := r.db.WithContext(ctx).
		Where("driver_id = ? AND dispatcher_id = ?", driverID, dispatcherID).
		Order("effective_from DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
