package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loadhub-io/loadhub-backend/api/controllers"
	webhookcontrollers "github.com/loadhub-io/loadhub-backend/api/controllers/webhooks"
	"github.com/loadhub-io/loadhub-backend/api/middleware"
	"github.com/loadhub-io/loadhub-backend/internal/bids"
	"github.com/loadhub-io/loadhub-backend/internal/cancellations"
	"github.com/loadhub-io/loadhub-backend/internal/orders"
	"github.com/loadhub-io/loadhub-backend/internal/payouts"
	"github.com/loadhub-io/loadhub-backend/internal/settlement"
	"github.com/loadhub-io/loadhub-backend/internal/wallets"
	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/db"
	"github.com/loadhub-io/loadhub-backend/pkg/enums"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
	"github.com/loadhub-io/loadhub-backend/pkg/redis"
	"github.com/loadhub-io/loadhub-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	orderService orders.Service,
	bidService bids.Service,
	settlementService settlement.Service,
	cancellationService cancellations.Service,
	walletService wallets.Service,
	payoutService payouts.Service,
	stripeClient *stripe.Client,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(settlementService, stripeClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderId}", controllers.OrderDetail(orderService, logg))
			r.Get("/{orderId}/bids", controllers.BidList(bidService, logg))
			r.Get("/{orderId}/locations", controllers.OrderLocations(orderService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleCargoOwner))
				r.Post("/", controllers.OrderCreate(orderService, logg))
				r.Get("/", controllers.OrderList(orderService, logg))
				r.Post("/{orderId}/open", controllers.OrderOpenForBidding(orderService, logg))
				r.Post("/{orderId}/select-bid", controllers.BidSelect(settlementService, logg))
				r.Get("/{orderId}/cancellation/preview", controllers.CancelPreview(cancellationService, logg))
				r.Post("/{orderId}/cancel", controllers.CancelOrder(cancellationService, logg))
				r.Get("/{orderId}/cancellation", controllers.CancellationDetail(cancellationService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleDriver))
				r.Post("/{orderId}/acknowledge", controllers.OrderAcknowledge(orderService, logg))
				r.Post("/{orderId}/start", controllers.OrderStart(orderService, logg))
				r.Post("/{orderId}/manifest", controllers.OrderManifest(orderService, logg))
				r.Post("/{orderId}/deliver", controllers.OrderDeliver(orderService, logg))
				r.Post("/{orderId}/locations", controllers.OrderLocationPing(orderService, logg))
			})

			r.With(middleware.RequireRole(logg, enums.ActorRoleDriver, enums.ActorRoleDispatcher)).
				Post("/{orderId}/bids", controllers.BidSubmit(bidService, logg))
		})

		r.Route("/commissions", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleDispatcher))
			r.Post("/", controllers.CommissionSet(bidService, logg))
			r.Get("/{driverId}/active", controllers.CommissionActive(bidService, logg))
			r.Get("/{driverId}/history", controllers.CommissionHistory(bidService, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
			r.Post("/top-up", controllers.WalletTopUp(walletService, logg))
			r.Post("/withdraw", controllers.WalletWithdraw(walletService, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleDriver))
			r.Get("/", controllers.PayoutList(payoutService, logg))
			r.Get("/projection", controllers.PayoutProjection(payoutService, logg))
			r.Get("/{payoutId}", controllers.PayoutDetail(payoutService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
		r.Post("/payouts/run", controllers.AdminPayoutRun(payoutService, logg))
		r.Post("/payouts/{payoutId}/retry", controllers.AdminPayoutRetry(payoutService, logg))
		r.Post("/orders/{orderId}/flag", controllers.AdminOrderFlag(orderService, logg))
	})

	return r
}
