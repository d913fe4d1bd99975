package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/internal/bids"
	"github.com/loadhub-io/loadhub-backend/internal/identity"
	"github.com/loadhub-io/loadhub-backend/internal/notify"
	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
)

type fakeOrderRepo struct {
	orders    map[uuid.UUID]*models.CargoOrder
	documents []models.OrderDocument
	locations []models.OrderLocation
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uuid.UUID]*models.CargoOrder{}}
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) Create(_ context.Context, order *models.CargoOrder) error {
	order.ID = uuid.New()
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.CargoOrder, error) {
	if order, ok := f.orders[id]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.CargoOrder, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeOrderRepo) FindByIDWithBids(ctx context.Context, id uuid.UUID) (*models.CargoOrder, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeOrderRepo) FindByPaymentIntentID(_ context.Context, intentID string) (*models.CargoOrder, error) {
	for _, order := range f.orders {
		if order.PaymentIntentID != nil && *order.PaymentIntentID == intentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) Update(_ context.Context, order *models.CargoOrder) error {
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, status *enums.OrderStatus) ([]models.CargoOrder, error) {
	var out []models.CargoOrder
	for _, order := range f.orders {
		if order.OwnerID != ownerID {
			continue
		}
		if status != nil && order.Status != *status {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (f *fakeOrderRepo) CreateDocument(_ context.Context, doc *models.OrderDocument) error {
	doc.ID = uuid.New()
	f.documents = append(f.documents, *doc)
	return nil
}

func (f *fakeOrderRepo) CountDocuments(_ context.Context, orderID uuid.UUID, kind string) (int64, error) {
	var count int64
	for _, doc := range f.documents {
		if doc.OrderID == orderID && doc.Kind == kind {
			count++
		}
	}
	return count, nil
}

func (f *fakeOrderRepo) CreateLocation(_ context.Context, loc *models.OrderLocation) error {
	loc.ID = uuid.New()
	f.locations = append(f.locations, *loc)
	return nil
}

func (f *fakeOrderRepo) ListLocations(_ context.Context, orderID uuid.UUID) ([]models.OrderLocation, error) {
	var out []models.OrderLocation
	for _, loc := range f.locations {
		if loc.OrderID == orderID {
			out = append(out, loc)
		}
	}
	return out, nil
}

type fakeBidRepo struct {
	bids map[uuid.UUID]*models.Bid
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{bids: map[uuid.UUID]*models.Bid{}}
}

func (f *fakeBidRepo) WithTx(tx *gorm.DB) bids.Repository { return f }

func (f *fakeBidRepo) Create(_ context.Context, bid *models.Bid) error {
	bid.ID = uuid.New()
	f.bids[bid.ID] = bid
	return nil
}

func (f *fakeBidRepo) Update(_ context.Context, bid *models.Bid) error {
	f.bids[bid.ID] = bid
	return nil
}

func (f *fakeBidRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	if bid, ok := f.bids[id]; ok {
		copied := *bid
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBidRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeBidRepo) FindPendingByOrderAndTruck(_ context.Context, orderID, truckID uuid.UUID) (*models.Bid, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBidRepo) FindSelectedByOrder(_ context.Context, orderID uuid.UUID) (*models.Bid, error) {
	for _, bid := range f.bids {
		if bid.OrderID == orderID &&
			(bid.Status == enums.BidStatusCargoOwnerSelected || bid.Status == enums.BidStatusDriverAcknowledged) {
			copied := *bid
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBidRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	for _, bid := range f.bids {
		if bid.OrderID == orderID {
			out = append(out, *bid)
		}
	}
	return out, nil
}

func (f *fakeBidRepo) ExpireSiblings(_ context.Context, orderID, keptBidID uuid.UUID) error {
	for _, bid := range f.bids {
		if bid.OrderID == orderID && bid.ID != keptBidID &&
			(bid.Status == enums.BidStatusPending || bid.Status == enums.BidStatusAdminApproved) {
			bid.Status = enums.BidStatusExpired
		}
	}
	return nil
}

func (f *fakeBidRepo) FindOrderForUpdate(_ context.Context, orderID uuid.UUID) (*models.CargoOrder, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBidRepo) UpdateOrder(_ context.Context, order *models.CargoOrder) error { return nil }

func (f *fakeBidRepo) CreateCommission(_ context.Context, commission *models.DispatcherCommission) error {
	return nil
}

func (f *fakeBidRepo) CloseCommission(_ context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (f *fakeBidRepo) FindActiveCommission(_ context.Context, driverID, dispatcherID uuid.UUID) (*models.DispatcherCommission, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBidRepo) ListCommissions(_ context.Context, driverID, dispatcherID uuid.UUID) ([]models.DispatcherCommission, error) {
	return nil, nil
}

type fakeIdentityRepo struct {
	owners  map[uuid.UUID]*models.CargoOwner
	drivers map[uuid.UUID]*models.Driver
	trucks  map[uuid.UUID]*models.Truck
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{
		owners:  map[uuid.UUID]*models.CargoOwner{},
		drivers: map[uuid.UUID]*models.Driver{},
		trucks:  map[uuid.UUID]*models.Truck{},
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

func (f *fakeNotifier) typesSeen() []notify.EventType {
	out := make([]notify.EventType, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, event.Type)
	}
	return out
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

type orderFixture struct {
	repo     *fakeOrderRepo
	bidRepo  *fakeBidRepo
	idRepo   *fakeIdentityRepo
	notifier *fakeNotifier
	svc      Service
	clock    time.Time
	ownerID  uuid.UUID
	driverID uuid.UUID
	truckID  uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	fx := &orderFixture{
		repo:     newFakeOrderRepo(),
		bidRepo:  newFakeBidRepo(),
		idRepo:   newFakeIdentityRepo(),
		notifier: &fakeNotifier{},
		clock:    time.Date(2026, time.August, 20, 14, 0, 0, 0, time.UTC),
		ownerID:  uuid.New(),
		driverID: uuid.New(),
		truckID:  uuid.New(),
	}
	fx.idRepo.owners[fx.ownerID] = &models.CargoOwner{ID: fx.ownerID, Type: enums.OwnerTypeShipper, IsActive: true}
	fx.idRepo.drivers[fx.driverID] = &models.Driver{ID: fx.driverID, IsActive: true}
	fx.idRepo.trucks[fx.truckID] = &models.Truck{ID: fx.truckID, DriverID: fx.driverID, IsActive: true}

	svc, err := NewService(ServiceParams{
		Repo:              fx.repo,
		BidRepo:           fx.bidRepo,
		IdentityRepo:      fx.idRepo,
		TransactionRunner: stubTxRunner{},
		Notifier:          fx.notifier,
		Settlement:        testSettlementConfig(),
		Now:               func() time.Time { return fx.clock },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	fx.svc = svc
	return fx
}

// seedSelectedOrder puts an order in driver_selected with an accepted bid
// belonging to the fixture's truck.
func (fx *orderFixture) seedSelectedOrder(t *testing.T, amount string) (*models.CargoOrder, *models.Bid) {
	t.Helper()
	bid := &models.Bid{
		TruckID:       fx.truckID,
		Amount:        decimal.RequireFromString(amount),
		Status:        enums.BidStatusCargoOwnerSelected,
		SubmitterType: enums.BidSubmitterDriver,
	}
	order := &models.CargoOrder{
		ID:              uuid.New(),
		OwnerID:         fx.ownerID,
		Status:          enums.OrderStatusDriverSelected,
		PickupAddress:   "12 Dock Rd",
		DeliveryAddress: "80 Depot Ave",
	}
	bid.OrderID = order.ID
	if err := fx.bidRepo.Create(context.Background(), bid); err != nil {
		t.Fatalf("seed bid: %v", err)
	}
	order.AcceptedBidID = &bid.ID
	fx.repo.orders[order.ID] = order
	return order, bid
}

func TestCreateStartsInDraft(t *testing.T) {
	fx := newOrderFixture(t)

	order, err := fx.svc.Create(context.Background(), CreateOrderInput{
		OwnerID:         fx.ownerID,
		PickupAddress:   "12 Dock Rd",
		DeliveryAddress: "80 Depot Ave",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if order.Status != enums.OrderStatusDraft {
		t.Fatalf("expected draft, got %s", order.Status)
	}
	if !order.TotalAmount.IsZero() {
		t.Fatal("draft order must not carry money fields")
	}
}

func TestCreateValidation(t *testing.T) {
	fx := newOrderFixture(t)
	negative := decimal.RequireFromString("-1")

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"missing owner", CreateOrderInput{PickupAddress: "a", DeliveryAddress: "b"}},
		{"missing pickup", CreateOrderInput{OwnerID: fx.ownerID, DeliveryAddress: "b"}},
		{"missing delivery", CreateOrderInput{OwnerID: fx.ownerID, PickupAddress: "a"}},
		{"negative weight", CreateOrderInput{OwnerID: fx.ownerID, PickupAddress: "a", DeliveryAddress: "b", WeightKg: &negative}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fx.svc.Create(context.Background(), tc.input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected VALIDATION, got %v", err)
			}
		})
	}
}

func TestOpenForBiddingOnlyFromDraft(t *testing.T) {
	fx := newOrderFixture(t)
	order, err := fx.svc.Create(context.Background(), CreateOrderInput{
		OwnerID:         fx.ownerID,
		PickupAddress:   "12 Dock Rd",
		DeliveryAddress: "80 Depot Ave",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	opened, err := fx.svc.OpenForBidding(context.Background(), order.ID, fx.ownerID)
	if err != nil {
		t.Fatalf("OpenForBidding error: %v", err)
	}
	if opened.Status != enums.OrderStatusOpenForBidding {
		t.Fatalf("expected open_for_bidding, got %s", opened.Status)
	}

	// Second call must fail: the order already left draft.
	_, err = fx.svc.OpenForBidding(context.Background(), order.ID, fx.ownerID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition) {
		t.Fatalf("expected INVALID_STATE_TRANSITION, got %v", err)
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil {
		t.Fatalf("expected domain error, got %T", err)
	}
	details, ok := domainErr.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected detail map, got %T", domainErr.Details())
	}
	if details["observed"] != enums.OrderStatusOpenForBidding.String() {
		t.Fatalf("expected observed state in details, got %v", details)
	}
}

func TestOpenForBiddingRejectsForeignOwner(t *testing.T) {
	fx := newOrderFixture(t)
	order, _ := fx.svc.Create(context.Background(), CreateOrderInput{
		OwnerID:         fx.ownerID,
		PickupAddress:   "12 Dock Rd",
		DeliveryAddress: "80 Depot Ave",
	})

	_, err := fx.svc.OpenForBidding(context.Background(), order.ID, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestAcknowledgeAcceptAdvancesOrder(t *testing.T) {
	fx := newOrderFixture(t)
	order, bid := fx.seedSelectedOrder(t, "750.00")

	updated, err := fx.svc.AcknowledgeSelection(context.Background(), AcknowledgeSelectionInput{
		OrderID:  order.ID,
		DriverID: fx.driverID,
		Accepted: true,
	})
	if err != nil {
		t.Fatalf("AcknowledgeSelection error: %v", err)
	}
	if updated.Status != enums.OrderStatusDriverAcknowledged {
		t.Fatalf("expected driver_acknowledged, got %s", updated.Status)
	}
	stored := fx.bidRepo.bids[bid.ID]
	if stored.Status != enums.BidStatusDriverAcknowledged {
		t.Fatalf("expected acknowledged bid, got %s", stored.Status)
	}
	if stored.DriverAcknowledgedAt == nil || !stored.DriverAcknowledgedAt.Equal(fx.clock) {
		t.Fatal("expected acknowledgement timestamp from injected clock")
	}
}

func TestAcknowledgeDeclineReopensBidding(t *testing.T) {
	fx := newOrderFixture(t)
	order, bid := fx.seedSelectedOrder(t, "750.00")
	pickup := fx.clock.AddDate(0, 0, 2)
	order.ExpectedPickupDateTime = &pickup

	updated, err := fx.svc.AcknowledgeSelection(context.Background(), AcknowledgeSelectionInput{
		OrderID:  order.ID,
		DriverID: fx.driverID,
		Accepted: false,
	})
	if err != nil {
		t.Fatalf("AcknowledgeSelection error: %v", err)
	}
	if updated.Status != enums.OrderStatusOpenForBidding {
		t.Fatalf("expected order back in open_for_bidding, got %s", updated.Status)
	}
	if updated.AcceptedBidID != nil {
		t.Fatal("expected accepted bid reference cleared")
	}
	if updated.ExpectedPickupDateTime != nil {
		t.Fatal("expected pickup schedule cleared")
	}
	if got := fx.bidRepo.bids[bid.ID].Status; got != enums.BidStatusDriverDeclined {
		t.Fatalf("expected declined bid, got %s", got)
	}
}

func TestAcknowledgeRejectsWrongDriver(t *testing.T) {
	fx := newOrderFixture(t)
	order, _ := fx.seedSelectedOrder(t, "750.00")

	otherDriver := uuid.New()
	fx.idRepo.drivers[otherDriver] = &models.Driver{ID: otherDriver, IsActive: true}

	_, err := fx.svc.AcknowledgeSelection(context.Background(), AcknowledgeSelectionInput{
		OrderID:  order.ID,
		DriverID: otherDriver,
		Accepted: true,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestFulfillmentPathToDelivered(t *testing.T) {
	fx := newOrderFixture(t)
	order, bid := fx.seedSelectedOrder(t, "1000.00")
	ctx := context.Background()

	if _, err := fx.svc.AcknowledgeSelection(ctx, AcknowledgeSelectionInput{
		OrderID: order.ID, DriverID: fx.driverID, Accepted: true,
	}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	// Manifest upload requires ready_for_pickup, so starting the order first.
	if _, err := fx.svc.UploadManifest(ctx, DocumentsInput{
		OrderID: order.ID, DriverID: fx.driverID, DocumentURLs: []string{"doc://m1"},
	}); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition) {
		t.Fatalf("expected INVALID_STATE_TRANSITION before start, got %v", err)
	}

	if _, err := fx.svc.StartOrder(ctx, order.ID, fx.driverID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := fx.svc.UploadManifest(ctx, DocumentsInput{
		OrderID: order.ID, DriverID: fx.driverID,
	}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatal("manifest upload without documents must fail")
	}

	inTransit, err := fx.svc.UploadManifest(ctx, DocumentsInput{
		OrderID: order.ID, DriverID: fx.driverID, DocumentURLs: []string{"doc://m1"},
	})
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if inTransit.Status != enums.OrderStatusInTransit {
		t.Fatalf("expected in_transit, got %s", inTransit.Status)
	}
	if inTransit.ActualPickupDateTime == nil {
		t.Fatal("expected actual pickup timestamp")
	}

	delivered, err := fx.svc.CompleteDelivery(ctx, DocumentsInput{
		OrderID: order.ID, DriverID: fx.driverID, DocumentURLs: []string{"doc://d1"},
	})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if delivered.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}
	// Direct bid: earnings are the bid net of the platform fee, 1000 - 15%.
	if got := delivered.DriverEarnings.StringFixed(2); got != "850.00" {
		t.Fatalf("expected driver earnings 850.00, got %s", got)
	}
	if got := fx.bidRepo.bids[bid.ID].DriverEarnings.StringFixed(2); got != "850.00" {
		t.Fatalf("expected earnings stamped on bid, got %s", got)
	}

	want := []notify.EventType{
		notify.EventOrderAcknowledged,
		notify.EventOrderReady,
		notify.EventOrderInTransit,
		notify.EventOrderDelivered,
	}
	seen := fx.notifier.typesSeen()
	if len(seen) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestCompleteDeliveryKeepsPrecomputedEarnings(t *testing.T) {
	fx := newOrderFixture(t)
	order, bid := fx.seedSelectedOrder(t, "1000.00")
	// Dispatcher split already stamped on the bid at submission.
	precomputed := decimal.RequireFromString("640.00")
	bid.DriverEarnings = &precomputed
	fx.bidRepo.bids[bid.ID] = bid
	ctx := context.Background()

	if _, err := fx.svc.AcknowledgeSelection(ctx, AcknowledgeSelectionInput{
		OrderID: order.ID, DriverID: fx.driverID, Accepted: true,
	}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, err := fx.svc.StartOrder(ctx, order.ID, fx.driverID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := fx.svc.UploadManifest(ctx, DocumentsInput{
		OrderID: order.ID, DriverID: fx.driverID, DocumentURLs: []string{"doc://m1"},
	}); err != nil {
		t.Fatalf("manifest: %v", err)
	}

	delivered, err := fx.svc.CompleteDelivery(ctx, DocumentsInput{
		OrderID: order.ID, DriverID: fx.driverID, DocumentURLs: []string{"doc://d1"},
	})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if got := delivered.DriverEarnings.StringFixed(2); got != "640.00" {
		t.Fatalf("expected precomputed earnings kept, got %s", got)
	}
}

func TestRecordLocationOnlyInTransit(t *testing.T) {
	fx := newOrderFixture(t)
	order, _ := fx.seedSelectedOrder(t, "500.00")

	err := fx.svc.RecordLocation(context.Background(), RecordLocationInput{
		OrderID:   order.ID,
		DriverID:  fx.driverID,
		Latitude:  decimal.RequireFromString("40.712800"),
		Longitude: decimal.RequireFromString("-74.006000"),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidStateTransition) {
		t.Fatalf("expected INVALID_STATE_TRANSITION, got %v", err)
	}

	order.Status = enums.OrderStatusInTransit
	if err := fx.svc.RecordLocation(context.Background(), RecordLocationInput{
		OrderID:   order.ID,
		DriverID:  fx.driverID,
		Latitude:  decimal.RequireFromString("40.712800"),
		Longitude: decimal.RequireFromString("-74.006000"),
	}); err != nil {
		t.Fatalf("RecordLocation error: %v", err)
	}

	pings, err := fx.svc.ListLocations(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ListLocations error: %v", err)
	}
	if len(pings) != 1 {
		t.Fatalf("expected one ping, got %d", len(pings))
	}
}
