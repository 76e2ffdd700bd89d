package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velora-co/velora-backend/internal/notifications"
	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/db"
	"github.com/velora-co/velora-backend/pkg/logger"
	"github.com/velora-co/velora-backend/pkg/mailer"
	"github.com/velora-co/velora-backend/pkg/metrics"
	"github.com/velora-co/velora-backend/pkg/outbox"
	"github.com/velora-co/velora-backend/pkg/outbox/idempotency"
	"github.com/velora-co/velora-backend/pkg/redis"
)

// logSender stands in for sendgrid when no API key is configured. It logs
// the message instead of sending it, which keeps local development working
// without credentials.
type logSender struct {
	logg *logger.Logger
}

func (s logSender) Send(ctx context.Context, msg mailer.Message) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	})
	s.logg.Info(ctx, "email delivery skipped, sendgrid not configured")
	return nil
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var sender mailer.Sender
	if cfg.Sendgrid.APIKey != "" {
		sender, err = mailer.New(cfg.Sendgrid, logg)
		if err != nil {
			logg.Error(ctx, "failed to create mailer", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "sendgrid credentials missing, emails will be logged only")
		sender = logSender{logg: logg}
	}

	handler, err := notifications.NewHandler(sender, cfg.Notifications, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notification handler", err)
		os.Exit(1)
	}

	registry := outbox.NewDecoderRegistry()
	notifications.RegisterDecoders(registry)

	guard, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(promRegistry)

	gdb := dbClient.DB()
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(gdb),
		DLQ:        outbox.NewDLQRepository(gdb),
		Decoder:    registry,
		Handler:    handler,
		Guard:      guard,
		Metrics:    relayMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create relay service", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:    ":" + cfg.Service.MetricsPort,
		Handler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		if err := metricsServer.Shutdown(context.Background()); err != nil {
			logg.Error(context.Background(), "error shutting down metrics server", err)
		}
	}()

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"metrics_addr": metricsServer.Addr,
	})
	logg.Info(logCtx, "starting outbox relay worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "relay worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "relay worker shut down gracefully")
}
