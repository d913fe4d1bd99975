package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loadhub-io/loadhub-backend/internal/cron"
	"github.com/loadhub-io/loadhub-backend/internal/identity"
	"github.com/loadhub-io/loadhub-backend/internal/notify"
	"github.com/loadhub-io/loadhub-backend/internal/payments"
	"github.com/loadhub-io/loadhub-backend/internal/payouts"
	"github.com/loadhub-io/loadhub-backend/internal/wallets"
	"github.com/loadhub-io/loadhub-backend/pkg/config"
	"github.com/loadhub-io/loadhub-backend/pkg/db"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
	"github.com/loadhub-io/loadhub-backend/pkg/metrics"
	"github.com/loadhub-io/loadhub-backend/pkg/migrate"
	"github.com/loadhub-io/loadhub-backend/pkg/pubsub"
	"github.com/loadhub-io/loadhub-backend/pkg/redis"
	pkgstripe "github.com/loadhub-io/loadhub-backend/pkg/stripe"
)

const lockKeyFormat = "lh:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	walletService, err := wallets.NewService(wallets.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Repo:              payouts.NewRepository(dbClient.DB()),
		IdentityRepo:      identity.NewRepository(dbClient.DB()),
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

	payoutJob, err := cron.NewPayoutJob(cron.PayoutJobParams{
		Logger:  logg,
		Payouts: payoutService,
		Force:   cfg.Flags.ForcePayoutRun,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Payout.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(payoutJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Payout.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
