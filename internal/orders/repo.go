package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// Repository manages persistence for cargo orders and their owned documents
// and location pings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.CargoOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CargoOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.CargoOrder, error)
	FindByIDWithBids(ctx context.Context, id uuid.UUID) (*models.CargoOrder, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*models.CargoOrder, error)
	Update(ctx context.Context, order *models.CargoOrder) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, status *enums.OrderStatus) ([]models.CargoOrder, error)
	CreateDocument(ctx context.Context, doc *models.OrderDocument) error
	CountDocuments(ctx context.Context, orderID uuid.UUID, kind string) (int64, error)
	CreateLocation(ctx context.Context, loc *models.OrderLocation) error
	ListLocations(ctx context.Context, orderID uuid.UUID) ([]models.OrderLocation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.CargoOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CargoOrder, error) {
	var order models.CargoOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row so per-order operations serialize.
// Only meaningful inside a transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.CargoOrder, error) {
	var order models.CargoOrder
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDWithBids(ctx context.Context, id uuid.UUID) (*models.CargoOrder, error) {
	var order models.CargoOrder
	if err := r.db.WithContext(ctx).
		Preload("Bids", func(db *gorm.DB) *gorm.DB {
			return db.Order("amount ASC")
		}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, intentID string) (*models.CargoOrder, error) {
	var order models.CargoOrder
	if err := r.db.WithContext(ctx).
		First(&order, "payment_intent_id = ?", intentID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, order *models.CargoOrder) error {
	return r.db.WithContext(ctx).Omit("Bids").Save(order).Error
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, status *enums.OrderStatus) ([]models.CargoOrder, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var out []models.CargoOrder
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) CreateDocument(ctx context.Context, doc *models.OrderDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *repository) CountDocuments(ctx context.Context, orderID uuid.UUID, kind string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderDocument{}).
		Where("order_id = ? AND kind = ?", orderID, kind).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateLocation(ctx context.Context, loc *models.OrderLocation) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *repository) ListLocations(ctx context.Context, orderID uuid.UUID) ([]models.OrderLocation, error) {
	var out []models.OrderLocation
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("recorded_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
