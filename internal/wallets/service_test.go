package wallets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
)

type fakeRepository struct {
	wallets map[string]*models.Wallet
	txns    []models.WalletTransaction
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{wallets: map[string]*models.Wallet{}}
}

func key(userID uuid.UUID, kind string) string {
	return userID.String() + "/" + kind
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	wallet.ID = uuid.New()
	f.wallets[key(wallet.UserID, wallet.Kind)] = wallet
	return nil
}

func (f *fakeRepository) FindByUserAndKind(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error) {
	if w, ok := f.wallets[key(userID, kind)]; ok {
		copied := *w
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByUserAndKindForUpdate(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error) {
	return f.FindByUserAndKind(ctx, userID, kind)
}

func (f *fakeRepository) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	for _, w := range f.wallets {
		if w.ID == walletID {
			w.Balance = balance
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	txn.ID = uuid.New()
	f.txns = append(f.txns, *txn)
	return nil
}

func (f *fakeRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	for _, txn := range f.txns {
		if txn.WalletID == walletID {
			out = append(out, txn)
		}
	}
	return out, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestCreditThenDebitRoundTrip(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	userID := uuid.New()

	amount := decimal.RequireFromString("125.50")
	if _, err := svc.Credit(context.Background(), nil, EntryInput{
		UserID:      userID,
		Kind:        models.WalletKindDriver,
		Amount:      amount,
		Type:        enums.WalletTransactionTypeEarnings,
		Description: "weekly earnings",
	}); err != nil {
		t.Fatalf("Credit error: %v", err)
	}

	if _, err := svc.Debit(context.Background(), nil, EntryInput{
		UserID:      userID,
		Kind:        models.WalletKindDriver,
		Amount:      amount,
		Type:        enums.WalletTransactionTypeWithdrawal,
		Description: "withdraw all",
	}); err != nil {
		t.Fatalf("Debit error: %v", err)
	}

	wallet, err := svc.Balance(context.Background(), userID, models.WalletKindDriver)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if !wallet.Balance.IsZero() {
		t.Fatalf("expected zero balance after round trip, got %s", wallet.Balance)
	}
	if len(repo.txns) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(repo.txns))
	}
	if !repo.txns[0].Amount.Equal(amount) {
		t.Fatalf("credit row should be positive %s, got %s", amount, repo.txns[0].Amount)
	}
	if !repo.txns[1].Amount.Equal(amount.Neg()) {
		t.Fatalf("debit row should be negative %s, got %s", amount.Neg(), repo.txns[1].Amount)
	}
	if !repo.txns[1].BalanceAfter.IsZero() {
		t.Fatalf("debit row balance_after should be zero, got %s", repo.txns[1].BalanceAfter)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	userID := uuid.New()

	if _, err := svc.Credit(context.Background(), nil, EntryInput{
		UserID:      userID,
		Kind:        models.WalletKindCargoOwner,
		Amount:      decimal.RequireFromString("10.00"),
		Type:        enums.WalletTransactionTypeTopUp,
		Description: "seed",
	}); err != nil {
		t.Fatalf("Credit error: %v", err)
	}

	_, err := svc.Debit(context.Background(), nil, EntryInput{
		UserID:      userID,
		Kind:        models.WalletKindCargoOwner,
		Amount:      decimal.RequireFromString("10.01"),
		Type:        enums.WalletTransactionTypePayment,
		Description: "too much",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %v", err)
	}

	wallet, err := svc.Balance(context.Background(), userID, models.WalletKindCargoOwner)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if !wallet.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("failed debit must not move the balance, got %s", wallet.Balance)
	}
}

func TestEnsureWalletIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	userID := uuid.New()

	first, err := svc.EnsureWallet(context.Background(), nil, userID, models.WalletKindDriver)
	if err != nil {
		t.Fatalf("EnsureWallet error: %v", err)
	}
	second, err := svc.EnsureWallet(context.Background(), nil, userID, models.WalletKindDriver)
	if err != nil {
		t.Fatalf("EnsureWallet error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one wallet per (user, kind), got %s and %s", first.ID, second.ID)
	}
	if !first.Balance.IsZero() {
		t.Fatalf("new wallet must start at zero, got %s", first.Balance)
	}
}

func TestEntryValidation(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	tests := []struct {
		name  string
		input EntryInput
	}{
		{
			name: "missing user",
			input: EntryInput{
				Kind:   models.WalletKindDriver,
				Amount: decimal.RequireFromString("1.00"),
				Type:   enums.WalletTransactionTypeTopUp,
			},
		},
		{
			name: "bad kind",
			input: EntryInput{
				UserID: uuid.New(),
				Kind:   "vault",
				Amount: decimal.RequireFromString("1.00"),
				Type:   enums.WalletTransactionTypeTopUp,
			},
		},
		{
			name: "zero amount",
			input: EntryInput{
				UserID: uuid.New(),
				Kind:   models.WalletKindDriver,
				Type:   enums.WalletTransactionTypeTopUp,
			},
		},
		{
			name: "bad type",
			input: EntryInput{
				UserID: uuid.New(),
				Kind:   models.WalletKindDriver,
				Amount: decimal.RequireFromString("1.00"),
				Type:   enums.WalletTransactionType("teleport"),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Credit(context.Background(), nil, tc.input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}
