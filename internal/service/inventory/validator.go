package inventory

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetVariant(ctx context.Context, id string) (*domain.ProductVariant, error)
}

// Validator checks that every cart line can be fulfilled right now. It reads
// current stock and reserves nothing.
type Validator struct {
	products productRepo
}

func New(products productRepo) *Validator {
	return &Validator{products: products}
}

func (v *Validator) Validate(ctx context.Context, items []domain.CartItem) error {
	products := map[string]*domain.Product{}
	plainQty := map[string]int{}
	variantQty := map[string]int{}
	var order []string

	for _, item := range items {
		if _, seen := products[item.ProductID]; !seen {
			p, err := v.products.GetByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrItemUnavailable
				}
				return fmt.Errorf("load product %s: %w", item.ProductID, err)
			}
			if !p.Sellable() {
				return domain.ErrItemUnavailable
			}
			products[item.ProductID] = p
			order = append(order, item.ProductID)
		}
		if item.VariantID != nil {
			variantQty[*item.VariantID] += item.Quantity
		} else {
			plainQty[item.ProductID] += item.Quantity
		}
	}

	for _, item := range items {
		if item.VariantID == nil {
			continue
		}
		variant, err := v.products.GetVariant(ctx, *item.VariantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrVariantUnavailable
			}
			return fmt.Errorf("load variant %s: %w", *item.VariantID, err)
		}
		if variant.ProductID != item.ProductID || !variant.Sellable() {
			return domain.ErrVariantUnavailable
		}
		if variant.Stock != nil && *variant.Stock < variantQty[variant.ID] {
			return domain.ErrInsufficientVariantStock
		}
	}

	for _, id := range order {
		qty, ok := plainQty[id]
		if !ok {
			continue
		}
		if stock := products[id].Stock; stock != nil && *stock < qty {
			return domain.ErrInsufficientProductStock
		}
	}
	return nil
}
