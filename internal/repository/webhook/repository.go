package webhook

import (
	"context"
	"encoding/json"
)

type Repository interface {
	Exists(ctx context.Context, provider, eventID string) (bool, error)
	// Record stores a received event. It reports false when the event was
	// already recorded by a concurrent delivery.
	Record(ctx context.Context, provider, eventID string, payload json.RawMessage) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) error
}
