package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/observability"
	"storefront/internal/outbox"
	notificationrepo "storefront/internal/repository/notification"
)

func main() {
	cfg := config.FromEnv()
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	publisher, err := newPublisher(cfg)
	if err != nil {
		logger.Fatal("init publisher", zap.String("broker", cfg.OutboxBroker), zap.Error(err))
	}
	defer publisher.Close()

	relay := outbox.NewRelay(notificationrepo.NewPostgres(pool), publisher, cfg.RelayInterval, logger)
	logger.Info("notification relay started", zap.String("broker", cfg.OutboxBroker), zap.Duration("interval", cfg.RelayInterval))
	if err := relay.Run(ctx); err != nil {
		logger.Error("relay stopped", zap.Error(err))
	}
	logger.Info("notification relay stopped")
}

func newPublisher(cfg config.Config) (outbox.Publisher, error) {
	if cfg.OutboxBroker == "amqp" || cfg.OutboxBroker == "rabbitmq" {
		p, err := outbox.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return outbox.NewKafkaPublisher(cfg.KafkaBrokers...), nil
}
