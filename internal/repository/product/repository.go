package product

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// ListActiveByBusiness returns active products with their variants in storefront order.
	ListActiveByBusiness(ctx context.Context, businessID string) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetVariant(ctx context.Context, id string) (*domain.ProductVariant, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpsertVariant(ctx context.Context, variant domain.ProductVariant) (*domain.ProductVariant, error)
}
