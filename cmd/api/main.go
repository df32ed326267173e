package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/observability"
	"storefront/internal/payments"
	businessrepo "storefront/internal/repository/business"
	cartrepo "storefront/internal/repository/cart"
	discountrepo "storefront/internal/repository/discount"
	paymentrepo "storefront/internal/repository/payment"
	productrepo "storefront/internal/repository/product"
	salerepo "storefront/internal/repository/sale"
	shippingrepo "storefront/internal/repository/shipping"
	storerepo "storefront/internal/repository/store"
	webhookrepo "storefront/internal/repository/webhook"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	"storefront/internal/service/inventory"
	storefrontsvc "storefront/internal/service/storefront"
	webhooksvc "storefront/internal/service/webhook"
)

func main() {
	cfg := config.FromEnv()
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	businessRepo := businessrepo.NewPostgres(dbpool)
	storeRepo := storerepo.NewPostgres(dbpool)
	productRepo := productrepo.NewPostgres(dbpool, logger)
	shippingRepo := shippingrepo.NewPostgres(dbpool)
	cartRepo := cartrepo.NewPostgres(dbpool)
	discountRepo := discountrepo.NewPostgres(dbpool)
	saleRepo := salerepo.NewPostgres(dbpool, logger)
	paymentRepo := paymentrepo.NewPostgres(dbpool)
	webhookRepo := webhookrepo.NewPostgres(dbpool)

	var storefrontService *storefrontsvc.Service
	if feed := connectFeedCache(ctx, cfg, logger); feed != nil {
		storefrontService = storefrontsvc.New(businessRepo, storeRepo, productRepo, shippingRepo, feed, logger)
	} else {
		storefrontService = storefrontsvc.New(businessRepo, storeRepo, productRepo, shippingRepo, nil, logger)
	}

	cartService := cartsvc.New(cartRepo, productRepo, storefrontService, logger)

	var provider payments.Provider
	provider, err = payments.NewProvider(payments.ProviderConfig{
		Name:              cfg.PaymentProvider,
		MidtransServerKey: cfg.MidtransServerKey,
		MidtransBaseURL:   cfg.MidtransBaseURL,
		StripeAPIKey:      cfg.StripeAPIKey,
	})
	if err != nil {
		logger.Warn("payment provider disabled; checkouts will have no payment url", zap.Error(err))
		provider = nil
	} else {
		provider = payments.NewBreakerProvider(provider, payments.BreakerConfig{}, logger)
	}

	checkoutService := checkoutsvc.New(checkoutsvc.Deps{
		Stores:    storefrontService,
		Carts:     cartRepo,
		Discounts: discountRepo,
		Shipping:  shippingRepo,
		Settings:  storeRepo,
		Stock:     inventory.New(productRepo),
		Sales:     saleRepo,
		Provider:  provider,
		Logger:    logger,
	}, checkoutsvc.Options{
		Currency:   payments.CurrencyIDR,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	})
	reconciler := webhooksvc.New(webhookRepo, saleRepo, paymentRepo, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CartSvc:             cartService,
		CheckoutSvc:         checkoutService,
		Reconciler:          reconciler,
		StorefrontSvc:       storefrontService,
		MidtransServerKey:   cfg.MidtransServerKey,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		CookieSecure:        cfg.CookieSecure,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

// connectFeedCache returns nil when Redis is not configured or unreachable;
// the feed is then served straight from Postgres.
func connectFeedCache(ctx context.Context, cfg config.Config, logger *zap.Logger) *cache.FeedCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, feed cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		return nil
	}
	return cache.NewFeedCache(client, cfg.FeedCacheTTL)
}
