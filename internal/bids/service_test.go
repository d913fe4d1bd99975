package bids

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/internal/identity"
	"github.com/loadhub-io/loadhub-backend/internal/notify"
	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
)

type fakeRepository struct {
	orders      map[uuid.UUID]*models.CargoOrder
	bids        []*models.Bid
	commissions []*models.DispatcherCommission
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{orders: map[uuid.UUID]*models.CargoOrder{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(_ context.Context, bid *models.Bid) error {
	bid.ID = uuid.New()
	f.bids = append(f.bids, bid)
	return nil
}

func (f *fakeRepository) Update(_ context.Context, bid *models.Bid) error {
	for i, existing := range f.bids {
		if existing.ID == bid.ID {
			f.bids[i] = bid
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	for _, bid := range f.bids {
		if bid.ID == id {
			copied := *bid
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRepository) FindPendingByOrderAndTruck(_ context.Context, orderID, truckID uuid.UUID) (*models.Bid, error) {
	for _, bid := range f.bids {
		if bid.OrderID == orderID && bid.TruckID == truckID && bid.Status == enums.BidStatusPending {
			copied := *bid
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindSelectedByOrder(_ context.Context, orderID uuid.UUID) (*models.Bid, error) {
	for _, bid := range f.bids {
		if bid.OrderID == orderID &&
			(bid.Status == enums.BidStatusCargoOwnerSelected || bid.Status == enums.BidStatusDriverAcknowledged) {
			copied := *bid
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	for _, bid := range f.bids {
		if bid.OrderID == orderID {
			out = append(out, *bid)
		}
	}
	return out, nil
}

func (f *fakeRepository) ExpireSiblings(_ context.Context, orderID, keptBidID uuid.UUID) error {
	for _, bid := range f.bids {
		if bid.OrderID == orderID && bid.ID != keptBidID &&
			(bid.Status == enums.BidStatusPending || bid.Status == enums.BidStatusAdminApproved) {
			bid.Status = enums.BidStatusExpired
		}
	}
	return nil
}

func (f *fakeRepository) FindOrderForUpdate(_ context.Context, orderID uuid.UUID) (*models.CargoOrder, error) {
	if order, ok := f.orders[orderID]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdateOrder(_ context.Context, order *models.CargoOrder) error {
	f.orders[order.ID] = order
	return nil
}

func (f *fakeRepository) CreateCommission(_ context.Context, commission *models.DispatcherCommission) error {
	commission.ID = uuid.New()
	f.commissions = append(f.commissions, commission)
	return nil
}

func (f *fakeRepository) CloseCommission(_ context.Context, id uuid.UUID, at time.Time) error {
	for _, commission := range f.commissions {
		if commission.ID == id && commission.EffectiveTo == nil {
			closedAt := at
			commission.EffectiveTo = &closedAt
		}
	}
	return nil
}

func (f *fakeRepository) FindActiveCommission(_ context.Context, driverID, dispatcherID uuid.UUID) (*models.DispatcherCommission, error) {
	for _, commission := range f.commissions {
		if commission.DriverID == driverID && commission.DispatcherID == dispatcherID && commission.EffectiveTo == nil {
			copied := *commission
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListCommissions(_ context.Context, driverID, dispatcherID uuid.UUID) ([]models.DispatcherCommission, error) {
	var out []models.DispatcherCommission
	for _, commission := range f.commissions {
		if commission.DriverID == driverID && commission.DispatcherID == dispatcherID {
			out = append(out, *commission)
		}
	}
	return out, nil
}

type fakeIdentityRepo struct {
	owners      map[uuid.UUID]*models.CargoOwner
	drivers     map[uuid.UUID]*models.Driver
	dispatchers map[uuid.UUID]*models.Dispatcher
	trucks      map[uuid.UUID]*models.Truck
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{
		owners:      map[uuid.UUID]*models.CargoOwner{},
		drivers:     map[uuid.UUID]*models.Driver{},
		dispatchers: map[uuid.UUID]*models.Dispatcher{},
		trucks:      map[uuid.UUID]*models.Truck{},
	}
}

func (f *fakeIdentityRepo) WithTx(tx *gorm.DB) identity.Repository { return f }

func (f *fakeIdentityRepo) FindOwner(_ context.Context, id uuid.UUID) (*models.CargoOwner, error) {
	if owner, ok := f.owners[id]; ok {
		return owner, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIdentityRepo) FindDriver(_ context.Context, id uuid.UUID) (*models.Driver, error) {
	if driver, ok := f.drivers[id]; ok {
		return driver, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIdentityRepo) FindDispatcher(_ context.Context, id uuid.UUID) (*models.Dispatcher, error) {
	if dispatcher, ok := f.dispatchers[id]; ok {
		return dispatcher, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIdentityRepo) FindTruck(_ context.Context, id uuid.UUID) (*models.Truck, error) {
	if truck, ok := f.trucks[id]; ok {
		return truck, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIdentityRepo) FindDrivers(_ context.Context, ids []uuid.UUID) ([]models.Driver, error) {
	var out []models.Driver
	for _, id := range ids {
		if driver, ok := f.drivers[id]; ok {
			out = append(out, *driver)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	events []notify.Event
}

func (f *fakeNotifier) Notify(_ context.Context, event notify.Event) {
	f.events = append(f.events, event)
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func testSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		SystemFeeRate:           decimal.RequireFromString("0.20"),
		TaxRate:                 decimal.RequireFromString("0.10"),
		PlatformFeeRate:         decimal.RequireFromString("0.15"),
		DispatcherCommissionMax: decimal.RequireFromString("0.50"),
		InvoiceTermDays:         7,
	}
}

type bidFixture struct {
	repo         *fakeRepository
	idRepo       *fakeIdentityRepo
	notifier     *fakeNotifier
	svc          Service
	order        *models.CargoOrder
	truckID      uuid.UUID
	driverID     uuid.UUID
	dispatcherID uuid.UUID
}

func newBidFixture(t *testing.T) *bidFixture {
	t.Helper()
	repo := newFakeRepository()
	idRepo := newFakeIdentityRepo()
	notifier := &fakeNotifier{}

	driverID := uuid.New()
	truckID := uuid.New()
	dispatcherID := uuid.New()
	idRepo.drivers[driverID] = &models.Driver{ID: driverID, IsActive: true}
	idRepo.trucks[truckID] = &models.Truck{ID: truckID, DriverID: driverID, IsActive: true}
	idRepo.dispatchers[dispatcherID] = &models.Dispatcher{ID: dispatcherID, IsActive: true}

	order := &models.CargoOrder{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Status:  enums.OrderStatusOpenForBidding,
	}
	repo.orders[order.ID] = order

	svc, err := NewService(ServiceParams{
		Repo:              repo,
		IdentityRepo:      idRepo,
		TransactionRunner: stubTxRunner{},
		Notifier:          notifier,
		Settlement:        testSettlementConfig(),
		Now:               func() time.Time { return time.Date(2026, time.August, 21, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	return &bidFixture{
		repo:         repo,
		idRepo:       idRepo,
		notifier:     notifier,
		svc:          svc,
		order:        order,
		truckID:      truckID,
		driverID:     driverID,
		dispatcherID: dispatcherID,
	}
}

func TestFirstBidMovesOrderIntoBidding(t *testing.T) {
	fx := newBidFixture(t)

	bid, err := fx.svc.SubmitOrUpdate(context.Background(), SubmitBidInput{
		OrderID:       fx.order.ID,
		TruckID:       fx.truckID,
		Amount:        decimal.RequireFromString("800.00"),
		SubmitterType: enums.BidSubmitterDriver,
		ActorID:       fx.driverID,
	})
	if err != nil {
		t.Fatalf("SubmitOrUpdate error: %v", err)
	}
	if bid.Status != enums.BidStatusPending {
		t.Fatalf("expected pending bid, got %s", bid.Status)
	}
	if got := fx.repo.orders[fx.order.ID].Status; got != enums.OrderStatusBiddingInProgress {
		t.Fatalf("expected order in bidding_in_progress, got %s", got)
	}
	if bid.DriverEarnings != nil {
		t.Fatal("direct driver bid must not carry a commission split")
	}
	if len(fx.notifier.events) != 1 || fx.notifier.events[0].Type != notify.EventBidReceived {
		t.Fatalf("expected one bid-received event, got %+v", fx.notifier.events)
	}
}

func TestBidUpdateMustStrictlyLower(t *testing.T) {
	fx := newBidFixture(t)
	submit := func(amount string) (*models.Bid, error) {
		return fx.svc.SubmitOrUpdate(context.Background(), SubmitBidInput{
			OrderID:       fx.order.ID,
			TruckID:       fx.truckID,
			Amount:        decimal.RequireFromString(amount),
			SubmitterType: enums.BidSubmitterDriver,
			ActorID:       fx.driverID,
		})
	}

	if _, err := submit("500.00"); err != nil {
		t.Fatalf("initial bid error: %v", err)
	}

	_, err := submit("600.00")
	if !pkgerrors.HasCode(err, pkgerrors.CodeBidNotLowered) {
		t.Fatalf("expected BID_NOT_LOWERED raising to 600, got %v", err)
	}
	if _, err := submit("500.00"); !pkgerrors.HasCode(err, pkgerrors.CodeBidNotLowered) {
		t.Fatalf("expected BID_NOT_LOWERED for equal amount, got %v", err)
	}

	updated, err := submit("450.00")
	if err != nil {
		t.Fatalf("lowering bid error: %v", err)
	}
	if got := updated.Amount.StringFixed(2); got != "450.00" {
		t.Fatalf("expected amount 450.00, got %s", got)
	}
	if len(fx.repo.bids) != 1 {
		t.Fatalf("update must not create a second bid, have %d", len(fx.repo.bids))
	}
}

func TestDriverUpdateTakesOverDispatcherBid(t *testing.T) {
	fx := newBidFixture(t)

	first, err := fx.svc.SubmitOrUpdate(context.Background(), SubmitBidInput{
		OrderID:       fx.order.ID,
		TruckID:       fx.truckID,
		Amount:        decimal.RequireFromString("900.00"),
		SubmitterType: enums.BidSubmitterDispatcher,
		ActorID:       fx.dispatcherID,
	})
	if err != nil {
		t.Fatalf("dispatcher bid error: %v", err)
	}
	if first.DispatcherID == nil || *first.DispatcherID != fx.dispatcherID {
		t.Fatal("expected dispatcher attribution on the original bid")
	}

	updated, err := fx.svc.SubmitOrUpdate(context.Background(), SubmitBidInput{
		OrderID:       fx.order.ID,
		TruckID:       fx.truckID,
		Amount:        decimal.RequireFromString("850.00"),
		SubmitterType: enums.BidSubmitterDriver,
		ActorID:       fx.driverID,
	})
	if err != nil {
		t.Fatalf("driver update error: %v", err)
	}
	if updated.ID != first.ID {
		t.Fatal("update must reuse the pending bid row")
	}
	if updated.SubmitterType != enums.BidSubmitterDriver {
		t.Fatalf("expected driver attribution after takeover, got %s", updated.SubmitterType)
	}
	if updated.DispatcherID != nil {
		t.Fatal("dispatcher reference must clear with the commission fields")
	}
	if updated.DispatcherCommissionRate != nil || updated.DriverEarnings != nil {
		t.Fatal("direct driver bid must not keep the dispatcher split")
	}
}

func TestBidsRejectedOutsideBiddingStates(t *testing.T) {
	fx := newBidFixture(t)
	fx.order.Status = enums.OrderStatusDriverSelected

	_, err := fx.svc.SubmitOrUpdate(context.Background(), SubmitBidInput{
		OrderID:       fx.order.ID,
		TruckID:       fx.truckID,
		Amount:        decimal.RequireFromString("500.00"),
		SubmitterType: enums.BidSubmitterDriver,
		ActorID:       fx.driverID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition) {
		t.Fatalf("expected INVALID_STATE_TRANSITION, got %v", err)
	}
}

func TestDispatcherBidCarriesCommissionSplit(t *testing.T) {
	fx := newBidFixture(t)

	if _, err := fx.svc.SetCommission(context.Background(), SetCommissionInput{
		DriverID:     fx.driverID,
		DispatcherID: fx.dispatcherID,
		Rate:         decimal.RequireFromString("0.20"),
	}); err != nil {
		t.Fatalf("SetCommission error: %v", err)
	}

	bid, err := fx.svc.SubmitOrUpdate(context.Background(), SubmitBidInput{
		OrderID:       fx.order.ID,
		TruckID:       fx.truckID,
		Amount:        decimal.RequireFromString("1000.00"),
		SubmitterType: enums.BidSubmitterDispatcher,
		ActorID:       fx.dispatcherID,
	})
	if err != nil {
		t.Fatalf("SubmitOrUpdate error: %v", err)
	}

	if bid.DispatcherID == nil || *bid.DispatcherID != fx.dispatcherID {
		t.Fatal("expected dispatcher reference on bid")
	}
	// 1000 - 20% system fee = 800 net; 20% dispatcher cut = 160; driver keeps 640.
	if got := bid.DispatcherCommissionAmount.StringFixed(2); got != "160.00" {
		t.Fatalf("expected dispatcher cut 160.00, got %s", got)
	}
	if got := bid.DriverEarnings.StringFixed(2); got != "640.00" {
		t.Fatalf("expected driver earnings 640.00, got %s", got)
	}
}

func TestDispatcherBidWithoutCommissionRecordDefaultsToZero(t *testing.T) {
	fx := newBidFixture(t)

	bid, err := fx.svc.SubmitOrUpdate(context.Background(), SubmitBidInput{
		OrderID:       fx.order.ID,
		TruckID:       fx.truckID,
		Amount:        decimal.RequireFromString("1000.00"),
		SubmitterType: enums.BidSubmitterDispatcher,
		ActorID:       fx.dispatcherID,
	})
	if err != nil {
		t.Fatalf("SubmitOrUpdate error: %v", err)
	}
	if !bid.DispatcherCommissionAmount.IsZero() {
		t.Fatalf("expected zero dispatcher cut, got %s", bid.DispatcherCommissionAmount)
	}
	if got := bid.DriverEarnings.StringFixed(2); got != "800.00" {
		t.Fatalf("expected driver earnings 800.00, got %s", got)
	}
}

func TestSubmitRejectsActorWhoDoesNotOwnTruck(t *testing.T) {
	fx := newBidFixture(t)

	_, err := fx.svc.SubmitOrUpdate(context.Background(), SubmitBidInput{
		OrderID:       fx.order.ID,
		TruckID:       fx.truckID,
		Amount:        decimal.RequireFromString("800.00"),
		SubmitterType: enums.BidSubmitterDriver,
		ActorID:       uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestSetCommissionClosesPriorRecord(t *testing.T) {
	fx := newBidFixture(t)
	ctx := context.Background()

	first, err := fx.svc.SetCommission(ctx, SetCommissionInput{
		DriverID:     fx.driverID,
		DispatcherID: fx.dispatcherID,
		Rate:         decimal.RequireFromString("0.10"),
	})
	if err != nil {
		t.Fatalf("first SetCommission error: %v", err)
	}
	second, err := fx.svc.SetCommission(ctx, SetCommissionInput{
		DriverID:     fx.driverID,
		DispatcherID: fx.dispatcherID,
		Rate:         decimal.RequireFromString("0.25"),
	})
	if err != nil {
		t.Fatalf("second SetCommission error: %v", err)
	}

	history, err := fx.svc.CommissionHistory(ctx, fx.driverID, fx.dispatcherID)
	if err != nil {
		t.Fatalf("CommissionHistory error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two records, got %d", len(history))
	}

	active, err := fx.svc.ActiveCommission(ctx, fx.driverID, fx.dispatcherID)
	if err != nil {
		t.Fatalf("ActiveCommission error: %v", err)
	}
	if active.ID != second.ID {
		t.Fatal("expected the newer record to be active")
	}
	for _, record := range fx.repo.commissions {
		if record.ID == first.ID && record.EffectiveTo == nil {
			t.Fatal("prior record should be closed")
		}
	}
}

func TestSetCommissionRejectsRateOutOfRange(t *testing.T) {
	fx := newBidFixture(t)

	_, err := fx.svc.SetCommission(context.Background(), SetCommissionInput{
		DriverID:     fx.driverID,
		DispatcherID: fx.dispatcherID,
		Rate:         decimal.RequireFromString("0.51"),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for rate above cap, got %v", err)
	}
}
