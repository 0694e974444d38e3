package main

import (
	"context"
	"fmt"
	"os"

	"sickbeasts-storefront/internal/config"
	"sickbeasts-storefront/internal/db"
	"sickbeasts-storefront/internal/logging"
	"sickbeasts-storefront/internal/seed"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.Named("seed")

	if cfg.ContentStore == config.StoreMemory {
		logger.Fatal("the memory content store does not outlive this process; use SEED_ON_START with the api instead")
	}

	ctx := context.Background()
	docs, closeDocs, err := db.OpenContentStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open content store", zap.Error(err))
	}
	defer closeDocs()

	sum, err := seed.Apply(ctx, docs, logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	logger.Info("seed applied", zap.Int("created", sum.Created), zap.Int("updated", sum.Updated))
}
