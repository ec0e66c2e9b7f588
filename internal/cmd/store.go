package cmd

import (
	"context"

	"github.com/bffagent/bffagent/internal/config"
	"github.com/bffagent/bffagent/internal/store"
)

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// openConfiguredStore loads config and opens its store.
func openConfiguredStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return openStore(ctx, cfg.Store)
}
