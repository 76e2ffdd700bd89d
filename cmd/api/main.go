package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velora-co/velora-backend/api/routes"
	"github.com/velora-co/velora-backend/internal/auth"
	"github.com/velora-co/velora-backend/internal/cart"
	"github.com/velora-co/velora-backend/internal/catalog"
	checkoutsvc "github.com/velora-co/velora-backend/internal/checkout"
	"github.com/velora-co/velora-backend/internal/inventory"
	"github.com/velora-co/velora-backend/internal/orders"
	"github.com/velora-co/velora-backend/internal/payments"
	"github.com/velora-co/velora-backend/internal/users"
	squarewebhook "github.com/velora-co/velora-backend/internal/webhooks/square"
	"github.com/velora-co/velora-backend/pkg/auth/session"
	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/db"
	"github.com/velora-co/velora-backend/pkg/logger"
	"github.com/velora-co/velora-backend/pkg/metrics"
	"github.com/velora-co/velora-backend/pkg/migrate"
	"github.com/velora-co/velora-backend/pkg/outbox"
	"github.com/velora-co/velora-backend/pkg/redis"
	"github.com/velora-co/velora-backend/pkg/square"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	userRepo := users.NewRepository(gdb)
	catalogRepo := catalog.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	paymentsRepo := payments.NewRepository(gdb)
	inventoryRepo := inventory.NewRepository(gdb)
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		Outbox:         outboxService,
		Auth:           authService,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewStore(redisClient, cfg.Cart)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cartStore, catalogRepo, cfg.Cart)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(dbClient, cartService, userRepo, catalogRepo, checkoutsvc.NewRepository(gdb), outboxService, cfg.Checkout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, userRepo, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	// Square is optional; without credentials the store runs offline
	// payment confirmation only.
	var squareClient *square.Client
	if cfg.Square.AccessToken != "" {
		squareClient, err = square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create square client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "square credentials missing, card payments disabled")
	}

	var paymentsService payments.Service
	if squareClient != nil {
		paymentsService, err = payments.NewService(dbClient, ordersRepo, paymentsRepo, inventoryRepo, userRepo, outboxService, squareClient)
	} else {
		paymentsService, err = payments.NewService(dbClient, ordersRepo, paymentsRepo, inventoryRepo, userRepo, outboxService, nil)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	squareWebhookService, err := squarewebhook.NewService(squarewebhook.ServiceParams{
		Payments: paymentsService,
		Orders:   ordersRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create square webhook service", err)
		os.Exit(1)
	}

	squareWebhookGuard, err := squarewebhook.NewIdempotencyGuard(redisClient, cfg.Outbox.IdempotencyTTL, "square-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create square webhook guard", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.Service.MetricsPort,
		Handler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()

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
			httpMetrics,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			registerService,
			catalogService,
			cartService,
			checkoutService,
			ordersService,
			paymentsService,
			inventoryService,
			squareClient,
			squareWebhookService,
			squareWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
