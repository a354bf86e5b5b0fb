package backend

import (
	"context"
	"time"

	"planner/internal/metrics"
	"planner/internal/ports"
	"planner/internal/services"
)

// CleanupFunc releases whatever the backend opened.
type CleanupFunc func() error

// BackendResult is the wired store bundle. Stores.Ledger is the publishing
// LedgerService and Stores.Accounts the cached directory.
type BackendResult struct {
	Stores  ports.Stores
	Ledger  *services.LedgerService
	Metrics *metrics.Metrics
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	DataDirectory string

	// Event publishing, optional for both backends
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Account cache
	AccountCacheSize int
	AccountCacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
