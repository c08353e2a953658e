package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/cli"
	apphttp "tracker/internal/http"
	applog "tracker/internal/log"
	"tracker/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel)
	cli.MustValidate(logger, cfg)

	repo := cli.InitSQLite(logger.WithComponent(applog.ComponentStorage), cfg.SQLiteDBPath)
	defer repo.Close()

	opts := []store.Option{store.WithLogger(logger.WithComponent(applog.ComponentStore).Logger)}
	amqpClient, err := cli.ConnectAMQP(logger.WithComponent(applog.ComponentAMQP), cfg)
	switch {
	case err != nil:
		// The tracker runs without a broker.
		logger.Warn("Expense events disabled", applog.FieldError, err)
	case amqpClient != nil:
		defer amqpClient.Close()
		opts = append(opts, store.WithPublisher(amqpClient))
	}
	expenses := store.New(repo, opts...)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := expenses.Refresh(ctx); err != nil {
		logger.Warn("Initial expense load failed", applog.FieldError, err)
	}

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Store:   expenses,
		Parser:  cli.NewParser(cfg),
		Scanner: cli.NewScanner(cfg),
		DB:      repo,
		Config:  cfg,
		Logger:  logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expense tracker",
			"app", cfg.AppName,
			"version", cfg.AppVersion,
			"port", cfg.Port,
			"currency", cfg.DefaultCurrency,
			"events", cfg.EventsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		return 1
	}
	logger.Info("Server stopped gracefully")
	return 0
}
