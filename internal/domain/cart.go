package domain

import "time"

// Cart is the per (store, browser session) basket. It is created lazily and never deleted.
type Cart struct {
	ID        string     `json:"cartId"`
	StoreID   string     `json:"storeId"`
	SessionID string     `json:"sessionId"`
	CreatedAt time.Time  `json:"createdAt"`
	Items     []CartItem `json:"items"`
}

// CartItem holds the price, name and weight captured when the item was added.
type CartItem struct {
	ID                  string    `json:"id"`
	CartID              string    `json:"cartId"`
	ProductID           string    `json:"productId"`
	VariantID           *string   `json:"variantId,omitempty"`
	Quantity            int       `json:"qty"`
	PriceSnapshot       int64     `json:"priceSnapshot"`
	NameSnapshot        string    `json:"nameSnapshot"`
	VariantSnapshot     *string   `json:"variantSnapshot,omitempty"`
	WeightGramsSnapshot int       `json:"weightGramsSnapshot"`
	CreatedAt           time.Time `json:"createdAt"`
}

func (i CartItem) LineTotal() int64 {
	return int64(i.Quantity) * i.PriceSnapshot
}

// Subtotal sums qty × price snapshot across all items.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}

func (c Cart) TotalWeightGrams() int64 {
	var total int64
	for _, item := range c.Items {
		total += int64(item.Quantity) * int64(item.WeightGramsSnapshot)
	}
	return total
}
