package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/mbox-contacts/internal/adapters/store"
	"github.com/mikey/mbox-contacts/internal/config"
	"github.com/mikey/mbox-contacts/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates contact stores based on configuration
type StoreFactory struct {
	cfg    config.DatabaseConfig
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg.GetDatabase(),
		logger: logger,
	}
}

// CreateStore creates a store based on the configuration
func (f *StoreFactory) CreateStore() (core.Store, error) {
	switch f.cfg.Type {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.SQLitePath
		// Ensure directory exists
		if dir := filepath.Dir(sqlitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
		return store.NewSQLiteStore(sqlitePath, f.logger)
	case "mysql":
		return store.NewSQLStore(store.MySQL, f.cfg.MySQLDSN, f.logger)
	case "postgres":
		return store.NewSQLStore(store.Postgres, f.cfg.PostgresDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", f.cfg.Type)
	}
}
