package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sickbeasts-storefront/internal/catalog"
	"sickbeasts-storefront/internal/config"
	"sickbeasts-storefront/internal/db"
	"sickbeasts-storefront/internal/httpserver"
	"sickbeasts-storefront/internal/logging"
	"sickbeasts-storefront/internal/repository/browserstore"
	"sickbeasts-storefront/internal/seed"
	cartsvc "sickbeasts-storefront/internal/service/cart"
	newslettersvc "sickbeasts-storefront/internal/service/newsletter"
	productsvc "sickbeasts-storefront/internal/service/product"

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
	logger = logger.Named("api")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	docs, closeDocs, err := db.OpenContentStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open content store", zap.Error(err))
	}
	defer closeDocs()

	if cfg.SeedOnStart {
		if _, err := seed.Apply(ctx, docs, logger); err != nil {
			logger.Fatal("seed launch catalog", zap.Error(err))
		}
	}

	storage := browserstore.NewMemory()
	if cfg.RedisURL != "" {
		client, err := browserstore.Dial(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("connect browser storage", zap.Error(err))
		}
		defer client.Close()
		storage = browserstore.NewRedis(client, cfg.CartSessionTTL)
	} else {
		logger.Warn("REDIS_URL not set; carts are kept in process memory")
	}

	norm := catalog.NewNormalizer(catalog.ImageConfig{
		Host:      cfg.ImageHost,
		ProjectID: cfg.ImageProjectID,
		Dataset:   cfg.ImageDataset,
	})
	catalogClient := catalog.NewClient(docs, norm, logger)
	productService := productsvc.New(catalogClient, docs, norm, logger)
	newsletterService := newslettersvc.New(docs, logger)
	cartService := cartsvc.New(catalogClient, storage, cartsvc.Options{
		SessionTTL:     cfg.CartSessionTTL,
		IndicatorDelay: cfg.AddedToCartDelay,
	}, logger)

	cartDone := make(chan struct{})
	go func() {
		defer close(cartDone)
		cartService.Run(ctx)
	}()

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		ProductSvc:    productService,
		NewsletterSvc: newsletterService,
		CartSvc:       cartService,
		ReadyChecks: map[string]httpserver.Pinger{
			"content store":   docs,
			"browser storage": storage,
		},
		AdminJWTSecret: cfg.AdminJWTSecret,
		CORSOrigins:    cfg.CORSOrigins,
		CartSessionTTL: cfg.CartSessionTTL,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("content_store", cfg.ContentStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	stop()
	<-cartDone
	logger.Info("server stopped")
}
