package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"planner/internal/amqp"
	"planner/internal/cache"
	"planner/internal/memory"
	"planner/internal/metrics"
	"planner/internal/ports"
	"planner/internal/services"
	"planner/internal/storage"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a new backend factory. m may be nil.
func NewFactory(logger *slog.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:  logger,
		metrics: m,
	}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		stores  ports.Stores
		closers []func() error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		stores = repo.Stores()
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		stores = memory.NewFromFiles(dataDir)
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	ledger := services.NewLedgerService(stores.Ledger, f.publisher(ctx, config))
	stores.Ledger = ledger
	closers = append(closers, ledger.Close)

	size, ttl := config.AccountCacheSize, config.AccountCacheTTL
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	accounts := cache.NewAccountDirectory(stores.Accounts, size, ttl, f.metrics)
	stores.Accounts = accounts

	manager := cache.NewManager()
	for _, c := range accounts.Caches() {
		manager.Register(c)
	}
	manager.StartCleanup(ttl)

	return &BackendResult{
		Stores:  stores,
		Ledger:  ledger,
		Metrics: f.metrics,
		Cleanup: func() error {
			manager.Stop()
			var errs []error
			// close in reverse order of opening
			for i := len(closers) - 1; i >= 0; i-- {
				errs = append(errs, closers[i]())
			}
			return errors.Join(errs...)
		},
	}, nil
}

// publisher connects to the broker when configured. A broker that cannot be
// reached is logged and generation carries on without events.
func (f *DefaultFactory) publisher(ctx context.Context, config Config) services.EntryPublisher {
	if config.AMQPURL == "" {
		f.logger.Info("AMQP disabled - ledger entries will not be published")
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.metrics)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
