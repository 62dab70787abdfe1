package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/easyshop-backend/internal/cron"
	"github.com/angelmondragon/easyshop-backend/internal/ledger"
	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/internal/settlement"
	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/metrics"
	"github.com/angelmondragon/easyshop-backend/pkg/migrate"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	"github.com/angelmondragon/easyshop-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceName})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(context.Background(), "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeQuietly(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeQuietly(logg, "redis", redisClient.Close)

	promRegistry := metrics.NewWorkerRegistry()
	jobs, err := buildJobs(cfg, logg, dbClient, promRegistry)
	if err != nil {
		return err
	}

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName+":"+env), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(promRegistry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting cron worker")
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := service.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error { return metrics.Serve(gctx, cfg.Cron.MetricsAddr, promRegistry) })
	return group.Wait()
}

// buildJobs assembles the sweeps the worker runs each tick: unpaid order
// expiry and published outbox retention.
func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, reg *prometheus.Registry) (*cron.Registry, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)

	engine, err := settlement.NewEngine(ledger.NewRepository(conn), metrics.NewSettlementMetrics(reg), logg)
	if err != nil {
		return nil, fmt.Errorf("settlement engine: %w", err)
	}
	orderSvc, err := orders.NewService(orders.NewRepository(conn), dbClient, outbox.NewService(outboxRepo, logg), engine, orders.Options{
		PaymentExpiry:  cfg.Orders.PaymentExpiry,
		WarehouseLabel: cfg.Orders.WarehouseLabel,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	expiry, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:    logg,
		Orders:    orderSvc,
		BatchSize: cfg.Orders.ExpiryBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("order expiry job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	return cron.NewRegistry(expiry, retention), nil
}

func closeQuietly(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
