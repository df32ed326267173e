package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is a business scoped promo code.
type Discount struct {
	ID                string
	BusinessID        string
	Code              string
	Type              DiscountType
	Value             decimal.Decimal
	MinPurchaseAmount *int64
	MaxDiscountAmount *int64
	UsageLimit        *int
	UsedCount         int
	IsActive          bool
	StartDate         *time.Time
	EndDate           *time.Time
}

type PricingMode string

const (
	PricingFlat  PricingMode = "flat"
	PricingPerKg PricingMode = "per_kg"
)

type ShippingRate struct {
	ID          string      `json:"id"`
	StoreID     string      `json:"storeId"`
	Name        string      `json:"name"`
	PricingMode PricingMode `json:"pricingMode"`
	Amount      int64       `json:"amount"`
	AmountPerKg int64       `json:"amountPerKg"`
	IsActive    bool        `json:"isActive"`
}
