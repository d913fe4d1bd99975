package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loadhub-io/loadhub-backend/internal/identity"
	"github.com/loadhub-io/loadhub-backend/internal/notify"
	"github.com/loadhub-io/loadhub-backend/internal/payments"
	"github.com/loadhub-io/loadhub-backend/internal/wallets"
	"github.com/loadhub-io/loadhub-backend/pkg/db"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
	"github.com/loadhub-io/loadhub-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the weekly payout run: per-driver aggregation of settled
// earnings, routing to the transfer rail or the wallet fallback, and the
// at-most-once guarantee per (driver, period).
type Service interface {
	Run(ctx context.Context, force bool) (*RunResult, error)
	Retry(ctx context.Context, payoutID uuid.UUID) (*models.DriverPayout, error)
	Projection(ctx context.Context, driverID uuid.UUID) (*Projection, error)
	Get(ctx context.Context, payoutID uuid.UUID) (*models.DriverPayout, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverPayout, error)
}

type service struct {
	repo     Repository
	idRepo   identity.Repository
	wallets  wallets.Service
	transfer payments.TransferRail
	tx       txRunner
	notifier notify.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams collects the payout scheduler dependencies.
type ServiceParams struct {
	Repo              Repository
	IdentityRepo      identity.Repository
	Wallets           wallets.Service
	TransferRail      payments.TransferRail
	TransactionRunner txRunner
	Notifier          notify.Notifier
	Logger            *logger.Logger
	Now               func() time.Time
}

// NewService wires the payout scheduler dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout repository required")
	}
	if params.IdentityRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity repository required")
	}
	if params.Wallets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet service required")
	}
	if params.TransferRail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transfer rail required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		idRepo:   params.IdentityRepo,
		wallets:  params.Wallets,
		transfer: params.TransferRail,
		tx:       params.TransactionRunner,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// RunResult summarizes one scheduler pass.
type RunResult struct {
	Period           Period                `json:"period"`
	Completed        int                   `json:"completed"`
	Failed           int                   `json:"failed"`
	Skipped          int                   `json:"skipped"`
	AlreadyProcessed int                   `json:"already_processed"`
	Payouts          []models.DriverPayout `json:"payouts"`
}

// Projection is the read-only earnings dashboard view. Current covers the
// most recently closed window (eligible, not necessarily paid); Next covers
// the still-open window. The two are deliberately never summed.
type Projection struct {
	CurrentPeriod   Period          `json:"current_period"`
	CurrentEarnings decimal.Decimal `json:"current_earnings"`
	NextPeriod      Period          `json:"next_period"`
	NextEarnings    decimal.Decimal `json:"next_earnings"`
}

func (s *service) Run(ctx context.Context, force bool) (*RunResult, error) {
	period := CalculatePayoutPeriod(s.now(), force)
	result := &RunResult{Period: period}

	driverIDs, err := s.repo.EligibleDriverIDs(ctx, period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible drivers")
	}

	for _, driverID := range driverIDs {
		runCtx := s.logg.WithDriverID(ctx, driverID.String())

		payout, outcome, err := s.processDriver(runCtx, driverID, period)
		if err != nil {
			// One driver's failure must not abort the whole run.
			s.logg.Error(runCtx, "payout processing failed", err)
			result.Failed++
			continue
		}
		switch outcome {
		case outcomeCompleted:
			result.Completed++
		case outcomeFailed:
			result.Failed++
		case outcomeSkipped:
			result.Skipped++
		case outcomeExisting:
			result.AlreadyProcessed++
		}
		if payout != nil {
			result.Payouts = append(result.Payouts, *payout)
		}
	}
	return result, nil
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeSkipped
	outcomeExisting
)

func (s *service) processDriver(ctx context.Context, driverID uuid.UUID, period Period) (*models.DriverPayout, outcome, error) {
	// Idempotence: a processed (driver, period) short-circuits to the
	// existing record.
	existing, err := s.repo.FindByDriverAndPeriod(ctx, driverID, period)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing payout")
	}
	if existing != nil {
		return existing, outcomeExisting, nil
	}

	driver, err := s.idRepo.FindDriver(ctx, driverID)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	if !driver.IsActive {
		return nil, outcomeSkipped, nil
	}

	rail, accountID, err := s.routeDriver(ctx, driver)
	if err != nil {
		return nil, 0, err
	}
	if rail == "" {
		// No payout path configured. A gap, not a failure.
		s.logg.Warn(ctx, "driver has no payout path, skipping")
		return nil, outcomeSkipped, nil
	}

	settled, err := s.repo.SettledOrders(ctx, driverID, period)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate settled orders")
	}
	total := decimal.Zero
	for _, order := range settled {
		total = total.Add(order.Earnings)
	}
	total = money.Round(total)

	payout := &models.DriverPayout{
		DriverID:      driverID,
		PeriodStart:   period.Start,
		PeriodEnd:     period.End,
		TotalEarnings: total,
		Status:        enums.PayoutStatusProcessing,
		Rail:          rail,
	}

	// The Processing record persists before any external call so a crash
	// mid-transfer leaves an auditable row, never silent loss.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, payout); err != nil {
			return err
		}
		items := make([]models.DriverPayoutOrder, 0, len(settled))
		for _, order := range settled {
			items = append(items, models.DriverPayoutOrder{
				PayoutID:    payout.ID,
				OrderID:     order.OrderID,
				Earnings:    order.Earnings,
				DeliveredAt: order.DeliveredAt,
			})
		}
		return repo.CreateOrders(ctx, items)
	})
	if err != nil {
		if db.IsUniqueViolation(err, models.UniqueDriverPeriodConstraint) {
			// A concurrent run won the insert race.
			winner, findErr := s.repo.FindByDriverAndPeriod(ctx, driverID, period)
			if findErr != nil {
				return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load concurrent payout")
			}
			return winner, outcomeExisting, nil
		}
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
	}

	if total.IsZero() {
		now := s.now().UTC()
		payout.Status = enums.PayoutStatusCompleted
		payout.ProcessedAt = &now
		if err := s.repo.Update(ctx, payout); err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete zero payout")
		}
		return payout, outcomeCompleted, nil
	}

	if err := s.execute(ctx, payout, accountID); err != nil {
		return payout, outcomeFailed, nil
	}
	return payout, outcomeCompleted, nil
}

// routeDriver picks the payout rail: a verified external transfer account
// wins, a bank-linked wallet is the fallback, neither means skip.
func (s *service) routeDriver(ctx context.Context, driver *models.Driver) (enums.PayoutRail, string, error) {
	if driver.StripeAccountID != nil && driver.PayoutsEnabled {
		ok, err := s.transfer.AccountCanReceivePayouts(ctx, *driver.StripeAccountID)
		if err != nil {
			return "", "", err
		}
		if ok {
			return enums.PayoutRailTransfer, *driver.StripeAccountID, nil
		}
	}

	wallet, err := s.wallets.Balance(ctx, driver.ID, models.WalletKindDriver)
	if err != nil {
		return "", "", err
	}
	if wallet.BankLinked {
		return enums.PayoutRailWallet, "", nil
	}
	return "", "", nil
}

// execute moves the money for a Processing payout and records the terminal
// status. A transfer failure marks the payout Failed for operator retry, it
// is never retried automatically.
func (s *service) execute(ctx context.Context, payout *models.DriverPayout, accountID string) error {
	now := s.now().UTC()

	switch payout.Rail {
	case enums.PayoutRailTransfer:
		reference, err := s.transfer.TransferToDriver(ctx, payments.TransferInput{
			PayoutID:  payout.ID,
			DriverID:  payout.DriverID,
			AccountID: accountID,
			Amount:    payout.TotalEarnings,
		})
		if err != nil {
			reason := err.Error()
			payout.Status = enums.PayoutStatusFailed
			payout.FailureReason = &reason
			if updateErr := s.repo.Update(ctx, payout); updateErr != nil {
				s.logg.Error(ctx, "recording failed payout", updateErr)
			}
			s.notifyPayout(ctx, payout, notify.EventPayoutFailed)
			return err
		}
		payout.Status = enums.PayoutStatusCompleted
		payout.TransferReference = &reference
		payout.ProcessedAt = &now
		payout.FailureReason = nil
		if err := s.repo.Update(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payout")
		}

	case enums.PayoutRailWallet:
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.wallets.Credit(ctx, tx, wallets.EntryInput{
				UserID:      payout.DriverID,
				Kind:        models.WalletKindDriver,
				Amount:      payout.TotalEarnings,
				Type:        enums.WalletTransactionTypeEarnings,
				Description: fmt.Sprintf("payout for period %s to %s", payout.PeriodStart.Format("2006-01-02"), payout.PeriodEnd.Format("2006-01-02")),
			}); err != nil {
				return err
			}
			payout.Status = enums.PayoutStatusCompleted
			payout.ProcessedAt = &now
			payout.FailureReason = nil
			return s.repo.WithTx(tx).Update(ctx, payout)
		})
		if err != nil {
			reason := err.Error()
			payout.Status = enums.PayoutStatusFailed
			payout.FailureReason = &reason
			if updateErr := s.repo.Update(ctx, payout); updateErr != nil {
				s.logg.Error(ctx, "recording failed payout", updateErr)
			}
			s.notifyPayout(ctx, payout, notify.EventPayoutFailed)
			return err
		}

	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown payout rail %q", payout.Rail))
	}

	s.notifyPayout(ctx, payout, notify.EventPayoutProcessed)
	return nil
}

// Retry re-drives a Failed payout through its rail.
func (s *service) Retry(ctx context.Context, payoutID uuid.UUID) (*models.DriverPayout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	if payout.Status != enums.PayoutStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("only failed payouts can be retried, payout is %s", payout.Status))
	}

	driver, err := s.idRepo.FindDriver(ctx, payout.DriverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	rail, accountID, err := s.routeDriver(ctx, driver)
	if err != nil {
		return nil, err
	}
	if rail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "driver has no payout path configured")
	}

	payout.Rail = rail
	payout.Status = enums.PayoutStatusProcessing
	if err := s.repo.Update(ctx, payout); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payout processing")
	}

	if err := s.execute(ctx, payout, accountID); err != nil {
		return payout, err
	}
	return payout, nil
}

func (s *service) Projection(ctx context.Context, driverID uuid.UUID) (*Projection, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}

	current := CalculatePayoutPeriod(s.now(), true)
	next := current.Next()

	currentTotal, err := s.sumSettled(ctx, driverID, current)
	if err != nil {
		return nil, err
	}
	nextTotal, err := s.sumSettled(ctx, driverID, next)
	if err != nil {
		return nil, err
	}

	return &Projection{
		CurrentPeriod:   current,
		CurrentEarnings: currentTotal,
		NextPeriod:      next,
		NextEarnings:    nextTotal,
	}, nil
}

func (s *service) sumSettled(ctx context.Context, driverID uuid.UUID, period Period) (decimal.Decimal, error) {
	settled, err := s.repo.SettledOrders(ctx, driverID, period)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate settled orders")
	}
	total := decimal.Zero
	for _, order := range settled {
		total = total.Add(order.Earnings)
	}
	return money.Round(total), nil
}

func (s *service) Get(ctx context.Context, payoutID uuid.UUID) (*models.DriverPayout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

func (s *service) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverPayout, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	return s.repo.ListByDriver(ctx, driverID)
}

func (s *service) notifyPayout(ctx context.Context, payout *models.DriverPayout, eventType notify.EventType) {
	s.notifier.Notify(ctx, notify.Event{
		Type:        eventType,
		RecipientID: payout.DriverID,
		Attributes: map[string]string{
			"amount": payout.TotalEarnings.String(),
			"rail":   payout.Rail.String(),
		},
	})
}
