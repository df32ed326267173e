package main

import (
	"context"
	"flag"

	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/migrate"
	"storefront/internal/observability"
)

func main() {
	var (
		down        int
		showVersion bool
	)
	flag.IntVar(&down, "down", 0, "Roll back this many migrations instead of migrating up")
	flag.BoolVar(&showVersion, "version", false, "Print the applied schema version and exit")
	flag.Parse()

	cfg := config.FromEnv()
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	switch {
	case showVersion:
		version, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.Fatal("read schema version", zap.Error(err))
		}
		logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	case down > 0:
		if err := migrate.Down(ctx, pool, down); err != nil {
			logger.Fatal("roll back migrations", zap.Error(err))
		}
		logger.Info("migrations rolled back", zap.Int("steps", down))
	default:
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		logger.Info("migrations applied")
	}
}
