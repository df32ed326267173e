package notification

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// ListPending returns up to limit pending notifications, fewest publish
	// attempts first and oldest first within the same attempt count.
	ListPending(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkQueued(ctx context.Context, ids []string) error
	// MarkFailed records a failed publish. The row moves to failed once it
	// has been attempted maxAttempts times; the return value reports that.
	MarkFailed(ctx context.Context, id, reason string, maxAttempts int) (bool, error)
}
