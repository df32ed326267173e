package shipping

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.ShippingRate, error)
	// ListActiveByStore returns active rates, cheapest first.
	ListActiveByStore(ctx context.Context, storeID string) ([]domain.ShippingRate, error)
	Create(ctx context.Context, rate domain.ShippingRate) (*domain.ShippingRate, error)
}
