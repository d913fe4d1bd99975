package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/loadhub-io/loadhub-backend/api/middleware"
	"github.com/loadhub-io/loadhub-backend/api/responses"
	"github.com/loadhub-io/loadhub-backend/api/validators"
	"github.com/loadhub-io/loadhub-backend/internal/wallets"
	"github.com/loadhub-io/loadhub-backend/pkg/db/models"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	pkgerrors "github.com/loadhub-io/loadhub-backend/pkg/errors"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

// walletKindForRole maps the caller's role onto its wallet ledger.
func walletKindForRole(role string) (string, error) {
	switch role {
	case string(enums.ActorRoleCargoOwner):
		return models.WalletKindCargoOwner, nil
	case string(enums.ActorRoleDriver):
		return models.WalletKindDriver, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "no wallet for this role")
}

// WalletBalance returns the caller's wallet, creating nothing.
func WalletBalance(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		kind, err := walletKindForRole(middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := svc.Balance(r.Context(), middleware.ActorIDFromContext(r.Context()), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, wallet)
	}
}

// WalletTransactions lists the caller's ledger entries, newest first.
func WalletTransactions(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		kind, err := walletKindForRole(middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListTransactions(r.Context(), middleware.ActorIDFromContext(r.Context()), kind, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type walletMovementRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description,omitempty" validate:"max=255"`
}

// WalletTopUp credits externally received funds into the caller's wallet.
func WalletTopUp(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return walletMovementHandler(svc, logg, enums.WalletTransactionTypeTopUp)
}

// WalletWithdraw debits the caller's wallet for an external payout request.
func WalletWithdraw(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return walletMovementHandler(svc, logg, enums.WalletTransactionTypeWithdrawal)
}

func walletMovementHandler(svc wallets.Service, logg *logger.Logger, txType enums.WalletTransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		kind, err := walletKindForRole(middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req walletMovementRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := wallets.EntryInput{
			UserID:      middleware.ActorIDFromContext(r.Context()),
			Kind:        kind,
			Amount:      req.Amount,
			Type:        txType,
			Description: req.Description,
		}

		var (
			entry *models.WalletTransaction
		)
		switch txType {
		case enums.WalletTransactionTypeTopUp:
			entry, err = svc.TopUp(r.Context(), input)
		default:
			entry, err = svc.Withdraw(r.Context(), input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}
