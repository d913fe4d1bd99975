package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/loadhub-io/loadhub-backend/api/routes"
	"github.com/loadhub-io/loadhub-backend/internal/bids"
	"github.com/loadhub-io/loadhub-backend/internal/cancellations"
	"github.com/loadhub-io/loadhub-backend/internal/identity"
	"github.com/loadhub-io/loadhub-backend/internal/notify"
	"github.com/loadhub-io/loadhub-backend/internal/orders"
	"github.com/loadhub-io/loadhub-backend/internal/payments"
	"github.com/loadhub-io/loadhub-backend/internal/payouts"
	"github.com/loadhub-io/loadhub-backend/internal/settlement"
	"github.com/loadhub-io/loadhub-backend/internal/wallets"
	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/db"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
	"github.com/loadhub-io/loadhub-backend/pkg/migrate"
	"github.com/loadhub-io/loadhub-backend/pkg/pubsub"
	"github.com/loadhub-io/loadhub-backend/pkg/redis"
	pkgstripe "github.com/loadhub-io/loadhub-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	rails, err := payments.NewStripeRails(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment rails", err)
		os.Exit(1)
	}

	notifier := notify.NewLogNotifier(logg)
	if cfg.PubSub.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		notifier = notify.NewPubSubNotifier(pubsubClient.NotificationPublisher(), logg)
	}

	identityRepo := identity.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	bidRepo := bids.NewRepository(dbClient.DB())
	walletRepo := wallets.NewRepository(dbClient.DB())
	cancellationRepo := cancellations.NewRepository(dbClient.DB())
	payoutRepo := payouts.NewRepository(dbClient.DB())

	walletService, err := wallets.NewService(walletRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:              orderRepo,
		BidRepo:           bidRepo,
		IdentityRepo:      identityRepo,
		TransactionRunner: dbClient,
		Notifier:          notifier,
		Settlement:        cfg.Settlement,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	bidService, err := bids.NewService(bids.ServiceParams{
		Repo:              bidRepo,
		IdentityRepo:      identityRepo,
		TransactionRunner: dbClient,
		Notifier:          notifier,
		Settlement:        cfg.Settlement,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bid service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		OrderRepo:         orderRepo,
		BidRepo:           bidRepo,
		IdentityRepo:      identityRepo,
		PaymentRail:       rails,
		TransactionRunner: dbClient,
		Notifier:          notifier,
		Settlement:        cfg.Settlement,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	cancellationService, err := cancellations.NewService(cancellations.ServiceParams{
		Repo:              cancellationRepo,
		OrderRepo:         orderRepo,
		BidRepo:           bidRepo,
		Wallets:           walletService,
		TransactionRunner: dbClient,
		Notifier:          notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cancellation service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Repo:              payoutRepo,
		IdentityRepo:      identityRepo,
		Wallets:           walletService,
		TransferRail:      rails,
		TransactionRunner: dbClient,
		Notifier:          notifier,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			orderService,
			bidService,
			settlementService,
			cancellationService,
			walletService,
			payoutService,
			stripeClient,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
