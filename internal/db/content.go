package db

import (
	"context"
	"fmt"

	"sickbeasts-storefront/internal/config"
	"sickbeasts-storefront/internal/repository/document"

	"go.uber.org/zap"
)

// OpenContentStore returns the configured document store and a func that
// releases it.
func OpenContentStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (document.Store, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.ContentStore {
	case config.StoreMemory:
		logger.Warn("using in-memory content store; documents are lost on exit")
		return document.NewMemory(), func() {}, nil
	case config.StorePostgres:
		pool, err := Connect(ctx, cfg.DBConnString)
		if err != nil {
			return nil, nil, fmt.Errorf("connect content store: %w", err)
		}
		return document.NewPostgres(pool, logger), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown content store %q", cfg.ContentStore)
}
