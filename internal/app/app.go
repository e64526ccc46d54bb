// Package app builds and owns the long-lived dependencies of a crawler
// process: configuration, the logger, and the database pool.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"olx-rent-crawler/internal/config"
	"olx-rent-crawler/internal/logging"
	"olx-rent-crawler/internal/storage/postgres"
)

// App bundles the process-scoped services injected into commands.
type App struct {
	Cfg    config.Config
	Logger *zap.Logger
	Store  *postgres.Store
}

// New loads configuration and constructs the logger and ads store.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := postgres.NewStore(ctx, postgres.StoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("init ads store: %w", err)
	}

	return &App{
		Cfg:    cfg,
		Logger: logger,
		Store:  store,
	}, nil
}

// Close releases the store pool and flushes the logger.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
