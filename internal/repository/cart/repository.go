package cart

import (
	"context"

	"storefront/internal/domain"
)

// NewLine is the snapshot captured when an item is first added to a cart.
type NewLine struct {
	ProductID           string
	VariantID           *string
	Quantity            int
	PriceSnapshot       int64
	NameSnapshot        string
	VariantSnapshot     *string
	WeightGramsSnapshot int
}

type Repository interface {
	// GetOrCreate returns the cart for (store, session), inserting it on first use.
	GetOrCreate(ctx context.Context, storeID, sessionID string) (*domain.Cart, error)
	GetBySession(ctx context.Context, storeID, sessionID string) (*domain.Cart, error)
	// AddLineItem increments the quantity of an existing (product, variant) line or inserts a new one.
	AddLineItem(ctx context.Context, cartID string, line NewLine) error
	// SetLineQuantity deletes the line when quantity <= 0.
	SetLineQuantity(ctx context.Context, cartID, productID string, variantID *string, quantity int) error
	RemoveLineItem(ctx context.Context, cartID, productID string, variantID *string) error
}
