package discount

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// GetByCode looks up a promo code case-insensitively within a business.
	GetByCode(ctx context.Context, businessID, code string) (*domain.Discount, error)
	Upsert(ctx context.Context, d domain.Discount) (*domain.Discount, error)
}
