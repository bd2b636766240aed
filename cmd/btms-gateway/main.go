package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/borderhub/btms-gateway/internal/app"
	"github.com/borderhub/btms-gateway/internal/config"
	"github.com/borderhub/btms-gateway/internal/dispatch"
	"github.com/borderhub/btms-gateway/internal/forwarder"
	"github.com/borderhub/btms-gateway/internal/httpapi"
	"github.com/borderhub/btms-gateway/internal/metrics"
	"github.com/borderhub/btms-gateway/internal/queue"
	"github.com/borderhub/btms-gateway/internal/routing"
	"github.com/borderhub/btms-gateway/internal/shared/logging"
	"github.com/borderhub/btms-gateway/internal/soapmsg"
	"github.com/borderhub/btms-gateway/internal/transcode"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.New("btms-gateway")

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		logger.Error("ensure state dir", "path", cfg.StateDir, "error", err)
		os.Exit(1)
	}

	table, err := routing.LoadFile(cfg.RoutesPath)
	if err != nil {
		logger.Error("load routing table", "path", cfg.RoutesPath, "error", err)
		os.Exit(1)
	}

	store, err := queue.Open(ctx, cfg.QueueDBPath)
	if err != nil {
		logger.Error("open queue store", "path", cfg.QueueDBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	m := metrics.New()
	transcoding := table.Transcoding()
	transcoder := transcode.New(transcode.Options{
		KnownArrays:  transcoding.KnownArrays,
		KnownNumbers: transcoding.KnownNumbers,
	})
	catalog := soapmsg.NewCatalog()
	creds := soapmsg.Credentials{Username: cfg.SoapUsername, Password: cfg.SoapPassword}
	profiles := dispatch.NewProfiles(cfg.HTTPTimeout)

	orchestrator := dispatch.New(transcoder, catalog, store,
		profiles.Get(dispatch.ProfileNoRetry), logger, m)

	fwd, err := forwarder.New(table, transcoder, soapmsg.NewBuilder(catalog),
		profiles.Get(dispatch.ProfileWithRetry), logger, m, creds, cfg.CutoverEnabled)
	if err != nil {
		logger.Error("init forwarder", "error", err)
		os.Exit(1)
	}

	deadLettered := func(queueName string) { m.DeadLettered.WithLabelValues(queueName).Inc() }
	decisionConsumer := &queue.Consumer{
		Store: store,
		Queue: cfg.DecisionQueue,
		Handler: func(ctx context.Context, msg queue.Message) error {
			return fwd.SendClearanceDecision(ctx, msg.ResourceID, msg.Body)
		},
		Benign:       forwarder.IsConflict,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
		DeadLettered: deadLettered,
	}
	errorConsumer := &queue.Consumer{
		Store: store,
		Queue: cfg.ErrorQueue,
		Handler: func(ctx context.Context, msg queue.Message) error {
			return fwd.SendProcessingError(ctx, msg.ResourceID, msg.Body)
		},
		Benign:       forwarder.IsConflict,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
		DeadLettered: deadLettered,
	}

	gateway := httpapi.New(table, orchestrator, logger, m)
	admin := httpapi.NewAdmin(table, store, m, logger)
	daemon := app.New(cfg, logger, gateway, admin, decisionConsumer, errorConsumer)

	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon exit", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete", "addr", cfg.GatewayListen)
}
