package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// SettledOrder is one delivered order eligible for payout aggregation.
type SettledOrder struct {
	OrderID     uuid.UUID       `gorm:"column:order_id"`
	Earnings    decimal.Decimal `gorm:"column:earnings"`
	DeliveredAt time.Time       `gorm:"column:delivered_at"`
}

// Repository manages persistence for driver payouts and the aggregation
// queries feeding them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.DriverPayout) error
	CreateOrders(ctx context.Context, items []models.DriverPayoutOrder) error
	Update(ctx context.Context, payout *models.DriverPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DriverPayout, error)
	FindByDriverAndPeriod(ctx context.Context, driverID uuid.UUID, period Period) (*models.DriverPayout, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverPayout, error)
	ListByPeriod(ctx context.Context, period Period) ([]models.DriverPayout, error)
	EligibleDriverIDs(ctx context.Context, period Period) ([]uuid.UUID, error)
	SettledOrders(ctx context.Context, driverID uuid.UUID, period Period) ([]SettledOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.DriverPayout) error {
	return r.db.WithContext(ctx).Omit("Orders").Create(payout).Error
}

func (r *repository) CreateOrders(ctx context.Context, items []models.DriverPayoutOrder) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) Update(ctx context.Context, payout *models.DriverPayout) error {
	return r.db.WithContext(ctx).Omit("Orders").Save(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DriverPayout, error) {
	var payout models.DriverPayout
	if err := r.db.WithContext(ctx).
		Preload("Orders").
		First(&payout, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByDriverAndPeriod(ctx context.Context, driverID uuid.UUID, period Period) (*models.DriverPayout, error) {
	var payout models.DriverPayout
	if err := r.db.WithContext(ctx).
		Where("driver_id = ? AND period_start = ? AND period_end = ?", driverID, period.Start, period.End).
		First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverPayout, error) {
	var out []models.DriverPayout
	if err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("period_start DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListByPeriod(ctx context.Context, period Period) ([]models.DriverPayout, error) {
	var out []models.DriverPayout
	if err := r.db.WithContext(ctx).
		Where("period_start = ? AND period_end = ?", period.Start, period.End).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

const settledOrdersBase = `
SELECT o.id AS order_id, o.driver_earnings AS earnings, o.delivery_datetime AS delivered_at
FROM cargo_orders o
JOIN bids b ON b.id = o.accepted_bid_id
JOIN trucks t ON t.id = b.truck_id
WHERE o.status = ?
  AND o.is_flagged = false
  AND o.driver_earnings IS NOT NULL
  AND o.delivery_datetime >= ?
  AND o.delivery_datetime < ?`

// EligibleDriverIDs returns the drivers with settled work inside the window.
func (r *repository) EligibleDriverIDs(ctx context.Context, period Period) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
SELECT DISTINCT t.driver_id
FROM cargo_orders o
JOIN bids b ON b.id = o.accepted_bid_id
JOIN trucks t ON t.id = b.truck_id
WHERE o.status = ?
  AND o.is_flagged = false
  AND o.driver_earnings IS NOT NULL
  AND o.delivery_datetime >= ?
  AND o.delivery_datetime < ?`
	if err := r.db.WithContext(ctx).
		Raw(query, enums.OrderStatusDelivered, period.Start, period.End).
		Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) SettledOrders(ctx context.Context, driverID uuid.UUID, period Period) ([]SettledOrder, error) {
	var out []SettledOrder
	query := settledOrdersBase + `
  AND t.driver_id = ?
ORDER BY o.delivery_datetime ASC`
	if err := r.db.WithContext(ctx).
		Raw(query, enums.OrderStatusDelivered, period.Start, period.End, driverID).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
