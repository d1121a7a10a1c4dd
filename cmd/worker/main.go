package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/whisperbox/internal/config"
	"github.com/ignite/whisperbox/internal/notify"
	"github.com/ignite/whisperbox/internal/pkg/logger"
	"github.com/ignite/whisperbox/internal/repository/postgres"
	"github.com/ignite/whisperbox/internal/service/profile"
	"github.com/ignite/whisperbox/internal/worker"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactPIIEnabled())

	db, err := postgres.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime())
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	retention := worker.NewVisitRetention(db, cfg.Analytics.VisitRetention(), cfg.Analytics.CleanupInterval())
	if cfg.Notifications.SQS.QueueURL == "" {
		logger.Info("no notification queue configured, running visit retention only")
		retention.Start(ctx)
		return
	}
	go retention.Start(ctx)

	subs := postgres.NewSubscriptionRepo(db)
	profiles := profile.NewService(postgres.NewProfileRepo(db), subs)
	deliverer, err := notify.BuildDeliverer(ctx, cfg.Notifications, profiles, subs)
	if err != nil {
		logger.Error("failed to build deliverer", "error", err)
		os.Exit(1)
	}
	client, err := notify.NewSQSClient(ctx, cfg.Notifications.SQS)
	if err != nil {
		logger.Error("failed to build sqs client", "error", err)
		os.Exit(1)
	}

	notify.NewConsumer(client, deliverer, cfg.Notifications.SQS, cfg.Notifications.DispatchTimeout()).Run(ctx)
}
