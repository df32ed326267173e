// Package outbox relays pending notification rows to a message broker.
package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
	"storefront/internal/domain"
)

const (
	DefaultBatchSize = 100
	DefaultInterval  = 2 * time.Second

	// MaxAttempts is how many publishes a row gets before it is marked failed.
	MaxAttempts = 5

	// Topic is used as the Kafka topic and the RabbitMQ exchange name.
	Topic = "notifications"
)

// Publisher delivers one notification to a broker.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
	Close() error
}

type notificationRepo interface {
	ListPending(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkQueued(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, id, reason string, maxAttempts int) (bool, error)
}

type Relay struct {
	repo      notificationRepo
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewRelay(repo notificationRepo, publisher Publisher, interval time.Duration, logger *zap.Logger) *Relay {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{repo: repo, publisher: publisher, interval: interval, batchSize: DefaultBatchSize, logger: logger}
}

// Run drains the outbox every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("outbox: drain failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Drain publishes one batch and marks the delivered rows queued. A row that
// fails to publish has its attempt counted and is retried behind fresher rows
// until it reaches MaxAttempts, after which it is marked failed.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	pending, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	queued := make([]string, 0, len(pending))
	for _, n := range pending {
		if err := r.publisher.Publish(ctx, n); err != nil {
			r.logger.Warn("outbox: publish failed",
				zap.String("notification_id", n.ID),
				zap.String("template", n.Template),
				zap.Int("attempt", n.Attempts+1),
				zap.Error(err),
			)
			r.recordFailure(ctx, n, err)
			continue
		}
		queued = append(queued, n.ID)
	}

	if err := r.repo.MarkQueued(ctx, queued); err != nil {
		return 0, err
	}
	if len(queued) > 0 {
		r.logger.Info("outbox: queued notifications", zap.Int("count", len(queued)), zap.Int("pending", len(pending)))
	}
	return len(queued), nil
}

func (r *Relay) recordFailure(ctx context.Context, n domain.Notification, publishErr error) {
	failed, err := r.repo.MarkFailed(ctx, n.ID, publishErr.Error(), MaxAttempts)
	if err != nil {
		r.logger.Error("outbox: record publish failure", zap.String("notification_id", n.ID), zap.Error(err))
		return
	}
	if failed {
		r.logger.Error("outbox: notification failed permanently",
			zap.String("notification_id", n.ID),
			zap.String("sale_id", n.SaleID),
			zap.Int("attempts", MaxAttempts),
		)
	}
}
