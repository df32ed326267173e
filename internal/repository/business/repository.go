package business

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Business, error)
	Create(ctx context.Context, b domain.Business) (*domain.Business, error)
}
