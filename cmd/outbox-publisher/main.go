package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/kafka"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/metrics"
	"github.com/angelmondragon/easyshop-backend/pkg/migrate"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox/registry"
	"github.com/angelmondragon/easyshop-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

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
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(context.Background(), "outbox publisher shutting down gracefully")
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

	tr, topics, closeTransport, err := buildTransport(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("bootstrap transport: %w", err)
	}
	defer closeQuietly(logg, "transport", closeTransport)

	eventRegistry, err := registry.NewEventRegistry(topics)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	promRegistry := metrics.NewWorkerRegistry()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Transport:     tr,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(promRegistry),
	})
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "transport", tr.Name())
	logg.Info(ctx, "starting outbox publisher")

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := service.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error { return metrics.Serve(gctx, cfg.Outbox.MetricsAddr, promRegistry) })
	return group.Wait()
}

func closeQuietly(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}

func buildTransport(ctx context.Context, cfg *config.Config, logg *logger.Logger) (transport, registry.Topics, func() error, error) {
	switch cfg.Outbox.TransportName() {
	case config.OutboxTransportKafka:
		client, err := kafka.NewClient(cfg.Kafka, logg)
		if err != nil {
			return nil, registry.Topics{}, nil, err
		}
		topics := registry.Topics{Orders: cfg.Kafka.OrdersTopic, Payouts: cfg.Kafka.PayoutsTopic}
		return newKafkaTransport(client), topics, client.Close, nil
	default:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, registry.Topics{}, nil, err
		}
		topics := registry.Topics{Orders: cfg.PubSub.OrdersTopic, Payouts: cfg.PubSub.PayoutsTopic}
		return newPubSubTransport(client), topics, client.Close, nil
	}
}
