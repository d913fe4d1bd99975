package wallets

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
)

// Repository manages persistence for wallets and their transaction rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByUserAndKind(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error)
	FindByUserAndKindForUpdate(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindByUserAndKind(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByUserAndKindForUpdate takes a row lock so concurrent balance changes
// serialize. Only meaningful inside a transaction.
func (r *repository) FindByUserAndKindForUpdate(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND kind = ?", userID, kind).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", balance).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
