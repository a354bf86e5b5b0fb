// Package cli holds the start-up steps shared by cmd/planner and
// cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"planner/internal/backend"
	"planner/internal/config"
	"planner/internal/core"
	plog "planner/internal/log"
	"planner/internal/metrics"
	"planner/internal/seed"
	"planner/internal/services"
)

// App is every service wired over one backend.
type App struct {
	Config    *config.Config
	Logger    *plog.Logger
	Metrics   *metrics.Metrics
	Backend   *backend.BackendResult
	Buckets   []core.Bucket
	Registry  *services.ObligationRegistry
	Planner   *services.PlannerService
	Bulk      *services.BulkCoordinator
	Processor *services.RecurringProcessor
	Importer  *seed.Importer
}

// SetupLogger builds the component logger for a binary at the configured
// level and makes it the slog default. Logs go to stderr so command output
// on stdout stays clean.
func SetupLogger(component, level string) *plog.Logger {
	lvl, err := config.ParseLogLevel(level)
	cfg := plog.DefaultConfig()
	cfg.Level = lvl
	cfg.Component = component
	cfg.Output = os.Stderr
	logger := plog.New(cfg)
	plog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info level", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap opens the backend described by cfg and wires the services on
// top of it. Close releases it.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *plog.Logger, m *metrics.Metrics) (*App, error) {
	buckets, err := config.LoadBuckets(cfg.BucketsFile)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(plog.ComponentBackend).Logger, m).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	stores := res.Stores
	registry := services.NewObligationRegistry(stores.Obligations, stores.Ledger, stores.Accounts)
	planner := services.NewPlannerService(stores.Months, stores.Overrides, stores.Accounts, buckets)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Backend:   res,
		Buckets:   buckets,
		Registry:  registry,
		Planner:   planner,
		Bulk:      services.NewBulkCoordinator(planner, m),
		Processor: services.NewRecurringProcessor(registry, m),
		Importer:  seed.NewImporter(planner, stores.Accounts),
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.Backend == nil || a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
