// Package cli provides common CLI initialization utilities shared by
// cmd/tracker and cmd/tracker-events.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tracker/internal/amqp"
	"tracker/internal/config"
	applog "tracker/internal/log"
	"tracker/internal/nlp"
	"tracker/internal/receipt"
	"tracker/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads .env and then the environment.
func LoadConfig() *config.Config {
	LoadEnvFile()
	return config.Load()
}

// SetupLogger builds the process logger for level and installs it as the
// slog default. An unknown level falls back to info; Validate reports it.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	if lvl, err := applog.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// MustValidate exits the process when cfg is invalid.
func MustValidate(logger *applog.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// ConnectAMQP dials the broker when events are enabled. It returns a nil
// client and nil error when AMQP_URL is unset.
func ConnectAMQP(logger *applog.Logger, cfg *config.Config) (*amqp.Client, error) {
	if !cfg.EventsEnabled() {
		logger.Info("AMQP disabled, expense events will not be published")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	logger.Info("Connected to AMQP broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// NewParser builds the text parser with the configured latency.
func NewParser(cfg *config.Config) *nlp.Parser {
	return nlp.NewParser(cfg.ParseDelay)
}

// NewScanner builds the receipt scanner limited to the configured sources.
func NewScanner(cfg *config.Config) *receipt.Scanner {
	return receipt.NewScanner(cfg.ScanDelay, receipt.WithSources(cfg.AllowedSources()...))
}
