package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
)

// Repository reads the identity tables owned by the user-management
// subsystem. All lookups here are read-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOwner(ctx context.Context, id uuid.UUID) (*models.CargoOwner, error)
	FindDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	FindDispatcher(ctx context.Context, id uuid.UUID) (*models.Dispatcher, error)
	FindTruck(ctx context.Context, id uuid.UUID) (*models.Truck, error)
	FindDrivers(ctx context.Context, ids []uuid.UUID) ([]models.Driver, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an identity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOwner(ctx context.Context, id uuid.UUID) (*models.CargoOwner, error) {
	var owner models.CargoOwner
	if err := r.db.WithContext(ctx).First(&owner, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

func (r *repository) FindDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).First(&driver, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) FindDispatcher(ctx context.Context, id uuid.UUID) (*models.Dispatcher, error) {
	var dispatcher models.Dispatcher
	if err := r.db.WithContext(ctx).First(&dispatcher, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dispatcher, nil
}

func (r *repository) FindTruck(ctx context.Context, id uuid.UUID) (*models.Truck, error) {
	var truck models.Truck
	if err := r.db.WithContext(ctx).First(&truck, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &truck, nil
}

func (r *repository) FindDrivers(ctx context.Context, ids []uuid.UUID) ([]models.Driver, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var drivers []models.Driver
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}
