package wallets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/pkg/db"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines wallet balance and ledger operations. Credit and Debit run
// inside the caller's transaction so money moves atomically with the state
// change that caused it; TopUp and Withdraw open their own.
type Service interface {
	EnsureWallet(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind string) (*models.Wallet, error)
	Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]models.WalletTransaction, error)
	TopUp(ctx context.Context, input EntryInput) (*models.WalletTransaction, error)
	Withdraw(ctx context.Context, input EntryInput) (*models.WalletTransaction, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// EntryInput describes one ledger entry. Amount is always positive; the
// operation decides the sign of the stored row.
type EntryInput struct {
	UserID         uuid.UUID
	Kind           string
	Amount         decimal.Decimal
	Type           enums.WalletTransactionType
	Description    string
	RelatedOrderID *uuid.UUID
}

func (i EntryInput) validate() error {
	if i.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if i.Kind != models.WalletKindCargoOwner && i.Kind != models.WalletKindDriver {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet kind %q", i.Kind))
	}
	if !i.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", i.Type))
	}
	if err := money.RequirePositive("amount", i.Amount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry amount")
	}
	return nil
}

// NewService wires wallet dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// EnsureWallet returns the wallet for (user, kind), creating it at zero
// balance when missing. A concurrent create loses the unique-index race and
// reloads the winner's row.
func (s *service) EnsureWallet(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind string) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	repo := s.repo.WithTx(tx)

	wallet, err := repo.FindByUserAndKind(ctx, userID, kind)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	created := &models.Wallet{
		UserID:  userID,
		Kind:    kind,
		Balance: decimal.Zero,
	}
	if err := repo.Create(ctx, created); err != nil {
		if db.IsUniqueViolation(err, "ux_wallets_user_kind") {
			return repo.FindByUserAndKind(ctx, userID, kind)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return created, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	return s.apply(ctx, tx, input, money.Round(input.Amount))
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	return s.apply(ctx, tx, input, money.Round(input.Amount).Neg())
}

// apply appends one signed ledger row and moves the cached balance in the
// same transaction. The wallet row is locked for the duration.
func (s *service) apply(ctx context.Context, tx *gorm.DB, input EntryInput, signed decimal.Decimal) (*models.WalletTransaction, error) {
	if tx == nil {
		var txn *models.WalletTransaction
		err := s.tx.WithTx(ctx, func(inner *gorm.DB) error {
			var applyErr error
			txn, applyErr = s.apply(ctx, inner, input, signed)
			return applyErr
		})
		return txn, err
	}

	repo := s.repo.WithTx(tx)

	if _, err := s.EnsureWallet(ctx, tx, input.UserID, input.Kind); err != nil {
		return nil, err
	}
	wallet, err := repo.FindByUserAndKindForUpdate(ctx, input.UserID, input.Kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}

	newBalance := wallet.Balance.Add(signed)
	if newBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds,
			fmt.Sprintf("balance %s cannot cover %s", wallet.Balance, signed.Neg()))
	}

	txn := &models.WalletTransaction{
		WalletID:       wallet.ID,
		Amount:         signed,
		BalanceAfter:   newBalance,
		Type:           input.Type,
		Description:    input.Description,
		RelatedOrderID: input.RelatedOrderID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet transaction")
	}
	if err := repo.UpdateBalance(ctx, wallet.ID, newBalance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	wallet, err := s.repo.FindByUserAndKind(ctx, userID, kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Wallet{UserID: userID, Kind: kind, Balance: decimal.Zero}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]models.WalletTransaction, error) {
	wallet, err := s.repo.FindByUserAndKind(ctx, userID, kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return s.repo.ListTransactions(ctx, wallet.ID, limit)
}

func (s *service) TopUp(ctx context.Context, input EntryInput) (*models.WalletTransaction, error) {
	input.Type = enums.WalletTransactionTypeTopUp
	return s.Credit(ctx, nil, input)
}

func (s *service) Withdraw(ctx context.Context, input EntryInput) (*models.WalletTransaction, error) {
	input.Type = enums.WalletTransactionTypeWithdrawal
	return s.Debit(ctx, nil, input)
}
