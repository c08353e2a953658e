package main

import (
	"context"
	"errors"
	"os"

	"tracker/internal/cli"
	applog "tracker/internal/log"
	"tracker/internal/storage"
	"tracker/internal/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentEvents)
	cli.MustValidate(logger, cfg)

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required to consume expense events")
		return 1
	}

	logger.Info("Starting tracker-events", "queue", cfg.AMQPQueue)

	// The database is only used to reconcile counts; consume without it if
	// it cannot be opened.
	var counter worker.Counter
	if repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath); err != nil {
		logger.Warn("SQLite unavailable, skipping reconciliation", applog.FieldError, err, "path", cfg.SQLiteDBPath)
	} else {
		defer repo.Close()
		counter = repo
	}

	client, err := cli.ConnectAMQP(logger.WithComponent(applog.ComponentAMQP), cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		return 1
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	w := worker.NewEventWorker(counter, logger.Logger)
	if err := client.ConsumeEvents(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", applog.FieldError, err)
		return 1
	}

	st := w.Stats()
	logger.Info("tracker-events stopped", "created", st.Created, "cleared", st.Cleared)
	return 0
}
