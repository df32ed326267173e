package domain

import "time"

type AvailabilityStatus string

const (
	AvailabilityInStock    AvailabilityStatus = "in_stock"
	AvailabilityOutOfStock AvailabilityStatus = "out_of_stock"
	AvailabilityPreorder   AvailabilityStatus = "preorder"
)

// Product is read-only from the checkout pipeline's point of view.
// A nil Stock means the product is not stock tracked.
type Product struct {
	ID                 string             `json:"id"`
	BusinessID         string             `json:"-"`
	SKU                string             `json:"sku"`
	Name               string             `json:"name"`
	Description        string             `json:"description,omitempty"`
	SellingPrice       int64              `json:"sellingPrice"`
	WeightGrams        int                `json:"weightGrams"`
	Stock              *int               `json:"stock,omitempty"`
	IsActive           bool               `json:"isActive"`
	AvailabilityStatus AvailabilityStatus `json:"availabilityStatus"`
	IsPinned           bool               `json:"isPinned"`
	SortOrder          int                `json:"sortOrder"`
	ImageURL           string             `json:"imageUrl,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	Variants           []ProductVariant   `json:"variants,omitempty"`
}

type ProductVariant struct {
	ID                 string             `json:"id"`
	ProductID          string             `json:"productId"`
	Name               string             `json:"name"`
	SKU                string             `json:"sku,omitempty"`
	PriceOverride      *int64             `json:"priceOverride,omitempty"`
	WeightGrams        *int               `json:"weightGrams,omitempty"`
	Stock              *int               `json:"stock,omitempty"`
	IsActive           bool               `json:"isActive"`
	AvailabilityStatus AvailabilityStatus `json:"availabilityStatus"`
}

// Sellable reports whether the product may be added to a cart.
func (p Product) Sellable() bool {
	return p.IsActive && p.AvailabilityStatus != AvailabilityOutOfStock
}

func (v ProductVariant) Sellable() bool {
	return v.IsActive && v.AvailabilityStatus != AvailabilityOutOfStock
}

// EffectivePrice prefers the variant override over the product selling price.
func EffectivePrice(p Product, v *ProductVariant) int64 {
	if v != nil && v.PriceOverride != nil {
		return *v.PriceOverride
	}
	return p.SellingPrice
}

func EffectiveWeight(p Product, v *ProductVariant) int {
	if v != nil && v.WeightGrams != nil {
		return *v.WeightGrams
	}
	return p.WeightGrams
}
