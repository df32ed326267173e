package payment

import (
	"context"
	"encoding/json"

	"storefront/internal/domain"
)

type Repository interface {
	// UpdateStatus records the raw provider status and payload on the payment
	// identified by (provider, provider_ref).
	UpdateStatus(ctx context.Context, provider, providerRef, status string, raw json.RawMessage) error
	Get(ctx context.Context, provider, providerRef string) (*domain.Payment, error)
}
