package cancellations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
)

// Repository manages persistence for cancellation records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.OrderCancellation) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderCancellation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cancellation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.OrderCancellation) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderCancellation, error) {
	var record models.OrderCancellation
	if err := r.db.WithContext(ctx).
		First(&record, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
