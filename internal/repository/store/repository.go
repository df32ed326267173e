package store

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Store, error)
	// DefaultForBusiness returns the business default store, falling back to its oldest store.
	DefaultForBusiness(ctx context.Context, businessID string) (*domain.Store, error)
	PlatformSettings(ctx context.Context, storeID string) (*domain.PlatformSettings, error)
	Create(ctx context.Context, s domain.Store) (*domain.Store, error)
	SetDefault(ctx context.Context, businessID, storeID string) error
	SavePlatformSettings(ctx context.Context, ps domain.PlatformSettings) error
}
