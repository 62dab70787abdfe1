package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/easyshop-backend/api/controllers"
	"github.com/angelmondragon/easyshop-backend/api/routes"
	"github.com/angelmondragon/easyshop-backend/internal/cart"
	"github.com/angelmondragon/easyshop-backend/internal/chat"
	"github.com/angelmondragon/easyshop-backend/internal/ledger"
	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/internal/payments"
	"github.com/angelmondragon/easyshop-backend/internal/payouts"
	"github.com/angelmondragon/easyshop-backend/internal/presence"
	"github.com/angelmondragon/easyshop-backend/internal/settlement"
	"github.com/angelmondragon/easyshop-backend/internal/wishlist"
	"github.com/angelmondragon/easyshop-backend/internal/withdrawals"
	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/idempotency"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/metrics"
	"github.com/angelmondragon/easyshop-backend/pkg/migrate"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	"github.com/angelmondragon/easyshop-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/easyshop-backend/pkg/stripe"
)

const (
	shutdownTimeout   = 15 * time.Second
	webhookLease      = 5 * time.Minute
	webhookRetention  = 7 * 24 * time.Hour
	readHeaderTimeout = 10 * time.Second
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
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	requireResource(ctx, logg, "stripe client", err)
	gateway, err := pkgstripe.NewGateway(stripeClient)
	requireResource(ctx, logg, "stripe gateway", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	presenceMetrics := metrics.NewPresenceMetrics(registry)
	directory := presence.NewDirectory()
	defer directory.Close()
	hub := presence.NewHub(presence.HubOptions{
		SendBuffer:     cfg.Presence.SendBuffer,
		PingInterval:   cfg.Presence.PingInterval,
		WriteWait:      cfg.Presence.WriteWait,
		MaxMessage:     cfg.Presence.MaxMessage,
		AllowedOrigins: cfg.App.CORSOrigins,
		Logger:         logg,
		Metrics:        presenceMetrics,
	})
	relay, err := presence.NewRelay(directory, hub, logg, presenceMetrics)
	requireResource(ctx, logg, "presence relay", err)
	hub.Attach(relay)

	svcs, err := buildServices(cfg, logg, dbClient, gateway, relay, registry)
	requireResource(ctx, logg, "services", err)

	webhookGuard, err := idempotency.NewGuard(redisClient, webhookLease, webhookRetention)
	requireResource(ctx, logg, "webhook idempotency", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: readHeaderTimeout,
		Handler: routes.NewRouter(routes.Deps{
			Config:           cfg,
			Logger:           logg,
			Readiness:        map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			IdempotencyStore: redisClient,
			Metrics:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Cart:             svcs.cart,
			Orders:           svcs.orders,
			Payments:         svcs.payments,
			Withdrawals:      svcs.withdrawals,
			Payouts:          svcs.payouts,
			Wishlist:         svcs.wishlist,
			Chat:             svcs.chat,
			Presence:         hub,
			StripeSigner:     stripeClient,
			StripeGuard:      webhookGuard,
		}),
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(gctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}

type services struct {
	cart        cart.Service
	orders      orders.Service
	payments    payments.Service
	withdrawals withdrawals.Service
	payouts     payouts.Service
	wishlist    wishlist.Service
	chat        chat.Service
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, gateway *pkgstripe.Gateway, relay *presence.Relay, reg prometheus.Registerer) (*services, error) {
	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	ledgerRepo := ledger.NewRepository(conn)

	cartSvc, err := cart.NewService(cart.NewRepository(conn), cart.Rules{
		CommissionPercent:    cfg.Pricing.CommissionPercent,
		ShippingFeePerSeller: cfg.Pricing.ShippingFee(),
	})
	if err != nil {
		return nil, err
	}

	engine, err := settlement.NewEngine(ledgerRepo, metrics.NewSettlementMetrics(reg), logg)
	if err != nil {
		return nil, err
	}

	orderSvc, err := orders.NewService(orders.NewRepository(conn), dbClient, outboxSvc, engine, orders.Options{
		PaymentExpiry:  cfg.Orders.PaymentExpiry,
		WarehouseLabel: cfg.Orders.WarehouseLabel,
		Logger:         logg,
	})
	if err != nil {
		return nil, err
	}

	paymentSvc, err := payments.NewService(orderSvc, gateway, payments.Options{
		Currency: cfg.Pricing.Currency,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	withdrawalSvc, err := withdrawals.NewService(withdrawals.NewRepository(conn), ledgerRepo, dbClient, outboxSvc, gateway, withdrawals.Options{
		Currency:        cfg.Pricing.Currency,
		TransferTimeout: cfg.Stripe.TransferTimeout,
		Logger:          logg,
	})
	if err != nil {
		return nil, err
	}

	payoutSvc, err := payouts.NewService(payouts.NewRepository(conn), dbClient, outboxSvc, gateway, payouts.Options{
		FrontendURL: cfg.App.FrontendURL,
		Country:     cfg.Stripe.ConnectCountry,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}

	wishlistSvc, err := wishlist.NewService(wishlist.NewRepository(conn))
	if err != nil {
		return nil, err
	}

	chatSvc, err := chat.NewService(chat.NewRepository(conn), relay)
	if err != nil {
		return nil, err
	}

	return &services{
		cart:        cartSvc,
		orders:      orderSvc,
		payments:    paymentSvc,
		withdrawals: withdrawalSvc,
		payouts:     payoutSvc,
		wishlist:    wishlistSvc,
		chat:        chatSvc,
	}, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(ctx, "failed to init "+name, err)
		os.Exit(1)
	}
}
