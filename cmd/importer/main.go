package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	"storefront/internal/observability"
	"storefront/internal/repository/business"
	"storefront/internal/repository/product"
)

func main() {
	var (
		filePath string
		slug     string
	)
	flag.StringVar(&filePath, "file", "", "Path to product CSV export")
	flag.StringVar(&slug, "business", "", "Business slug to import into")
	flag.Parse()

	if filePath == "" || slug == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	biz, err := business.NewPostgres(pool).GetBySlug(ctx, slug)
	if err != nil {
		logger.Fatal("load business", zap.String("slug", slug), zap.Error(err))
	}

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.String("path", filePath), zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, logger), biz.ID, logger)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}

	invalidateFeed(ctx, cfg, slug, logger)

	fmt.Printf("Imported %d products into %s in %s\n", count, slug, time.Since(start).Truncate(time.Millisecond))
}

// invalidateFeed drops the cached storefront feed so imported products show up
// before the cache entry expires.
func invalidateFeed(ctx context.Context, cfg config.Config, slug string, logger *zap.Logger) {
	if cfg.RedisAddr == "" {
		return
	}
	client, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("feed cache unavailable, skipping invalidation", zap.Error(err))
		return
	}
	defer client.Close()

	if err := cache.NewFeedCache(client, cfg.FeedCacheTTL).Delete(ctx, slug); err != nil {
		logger.Warn("feed cache invalidation failed", zap.String("slug", slug), zap.Error(err))
	}
}
