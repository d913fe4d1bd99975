package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/internal/bids"
	"github.com/loadhub-io/loadhub-backend/internal/cancellations"
	"github.com/loadhub-io/loadhub-backend/internal/orders"
	"github.com/loadhub-io/loadhub-backend/internal/payouts"
	"github.com/loadhub-io/loadhub-backend/internal/settlement"
	"github.com/loadhub-io/loadhub-backend/internal/wallets"
	pkgAuth "github.com/loadhub-io/loadhub-backend/pkg/auth"
	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, input orders.CreateOrderInput) (*models.CargoOrder, error) {
	return &models.CargoOrder{ID: uuid.New(), OwnerID: input.OwnerID, Status: enums.OrderStatusDraft}, nil
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.CargoOrder, error) {
	return &models.CargoOrder{ID: orderID}, nil
}

func (stubOrdersService) ListByOwner(ctx context.Context, ownerID uuid.UUID, status *enums.OrderStatus) ([]models.CargoOrder, error) {
	return nil, nil
}

func (stubOrdersService) OpenForBidding(ctx context.Context, orderID, ownerID uuid.UUID) (*models.CargoOrder, error) {
	return &models.CargoOrder{ID: orderID}, nil
}

func (stubOrdersService) AcknowledgeSelection(ctx context.Context, input orders.AcknowledgeSelectionInput) (*models.CargoOrder, error) {
	return &models.CargoOrder{ID: input.OrderID}, nil
}

func (stubOrdersService) StartOrder(ctx context.Context, orderID, driverID uuid.UUID) (*models.CargoOrder, error) {
	return &models.CargoOrder{ID: orderID}, nil
}

func (stubOrdersService) UploadManifest(ctx context.Context, input orders.DocumentsInput) (*models.CargoOrder, error) {
	return &models.CargoOrder{ID: input.OrderID}, nil
}

func (stubOrdersService) CompleteDelivery(ctx context.Context, input orders.DocumentsInput) (*models.CargoOrder, error) {
	return &models.CargoOrder{ID: input.OrderID}, nil
}

func (stubOrdersService) RecordLocation(ctx context.Context, input orders.RecordLocationInput) error {
	return nil
}

func (stubOrdersService) ListLocations(ctx context.Context, orderID uuid.UUID) ([]models.OrderLocation, error) {
	return nil, nil
}

func (stubOrdersService) SetFlag(ctx context.Context, orderID uuid.UUID, flagged bool) error {
	return nil
}

type stubBidsService struct{}

func (stubBidsService) SubmitOrUpdate(ctx context.Context, input bids.SubmitBidInput) (*models.Bid, error) {
	return &models.Bid{ID: uuid.New(), OrderID: input.OrderID}, nil
}

func (stubBidsService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error) {
	return nil, nil
}

func (stubBidsService) SetCommission(ctx context.Context, input bids.SetCommissionInput) (*models.DispatcherCommission, error) {
	return &models.DispatcherCommission{ID: uuid.New()}, nil
}

func (stubBidsService) ActiveCommission(ctx context.Context, driverID, dispatcherID uuid.UUID) (*models.DispatcherCommission, error) {
	return nil, nil
}

func (stubBidsService) CommissionHistory(ctx context.Context, driverID, dispatcherID uuid.UUID) ([]models.DispatcherCommission, error) {
	return nil, nil
}

type stubSettlementService struct{}

func (stubSettlementService) SelectBid(ctx context.Context, input settlement.SelectBidInput) (*settlement.SelectBidResult, error) {
	return &settlement.SelectBidResult{}, nil
}

func (stubSettlementService) ConfirmPayment(ctx context.Context, intentID string) (*models.CargoOrder, error) {
	return &models.CargoOrder{}, nil
}

type stubCancellationService struct{}

func (stubCancellationService) Preview(ctx context.Context, orderID uuid.UUID) (*cancellations.Quote, error) {
	return &cancellations.Quote{}, nil
}

func (stubCancellationService) Cancel(ctx context.Context, input cancellations.CancelInput) (*models.OrderCancellation, error) {
	return &models.OrderCancellation{}, nil
}

func (stubCancellationService) Get(ctx context.Context, orderID uuid.UUID) (*models.OrderCancellation, error) {
	return &models.OrderCancellation{}, nil
}

type stubWalletService struct{}

func (stubWalletService) EnsureWallet(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind string) (*models.Wallet, error) {
	return &models.Wallet{UserID: userID, Kind: kind}, nil
}

func (stubWalletService) Credit(ctx context.Context, tx *gorm.DB, input wallets.EntryInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

func (stubWalletService) Debit(ctx context.Context, tx *gorm.DB, input wallets.EntryInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

func (stubWalletService) Balance(ctx context.Context, userID uuid.UUID, kind string) (*models.Wallet, error) {
	return &models.Wallet{UserID: userID, Kind: kind}, nil
}

func (stubWalletService) ListTransactions(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (stubWalletService) TopUp(ctx context.Context, input wallets.EntryInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

func (stubWalletService) Withdraw(ctx context.Context, input wallets.EntryInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

type stubPayoutService struct{}

func (stubPayoutService) Run(ctx context.Context, force bool) (*payouts.RunResult, error) {
	return &payouts.RunResult{}, nil
}

func (stubPayoutService) Retry(ctx context.Context, payoutID uuid.UUID) (*models.DriverPayout, error) {
	return &models.DriverPayout{ID: payoutID}, nil
}

func (stubPayoutService) Projection(ctx context.Context, driverID uuid.UUID) (*payouts.Projection, error) {
	return &payouts.Projection{}, nil
}

func (stubPayoutService) Get(ctx context.Context, payoutID uuid.UUID) (*models.DriverPayout, error) {
	return &models.DriverPayout{ID: payoutID}, nil
}

func (stubPayoutService) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverPayout, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		stubOrdersService{},
		stubBidsService{},
		stubSettlementService{},
		stubCancellationService{},
		stubWalletService{},
		stubPayoutService{},
		nil,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:  uuid.New(),
		ActorID: uuid.New(),
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrderCreationRequiresCargoOwnerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	asDriver := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", nil)
	asDriver.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleDriver))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asDriver)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for driver got %d", resp.Code)
	}
}

func TestPayoutRoutesRequireDriverRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	asOwner := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/projection", nil)
	asOwner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleCargoOwner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asOwner)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cargo owner got %d", resp.Code)
	}

	asDriver := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/projection", nil)
	asDriver.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleDriver))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asDriver)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for driver got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts/run", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleDispatcher))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}
}

func TestWalletBalanceSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleDriver))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for wallet balance got %d", resp.Code)
	}
}
