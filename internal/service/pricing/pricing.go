// Package pricing turns a cart subtotal into a priced breakdown.
//
// Compute is pure: the caller resolves the promo, shipping rate and store
// settings beforehand and passes the clock in. All amounts are whole rupiah
// and every intermediate result is rounded half-up.
package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Reasons a promo code contributed no discount.
const (
	ReasonNone         = ""
	ReasonNoPromo      = "no_promo"
	ReasonInactive     = "inactive"
	ReasonNotStarted   = "not_started"
	ReasonExpired      = "expired"
	ReasonBelowMinimum = "below_minimum"
	ReasonExhausted    = "usage_limit_reached"
)

var errNegativeAmount = errors.New("pricing: subtotal and weight must not be negative")

type Input struct {
	StoreID      string
	Subtotal     int64
	WeightGrams  int64
	Promo        *domain.Discount
	Shipping     *domain.ShippingRate
	Settings     *domain.PlatformSettings
	StoreTaxRate *decimal.Decimal
	Now          time.Time
}

type Breakdown struct {
	Subtotal     int64  `json:"subtotal"`
	Discount     int64  `json:"discount"`
	Base         int64  `json:"base"`
	Shipping     int64  `json:"shipping"`
	Fee          int64  `json:"fee"`
	Tax          int64  `json:"tax"`
	Total        int64  `json:"total"`
	PromoApplied bool   `json:"promoApplied"`
	PromoReason  string `json:"-"`
}

func Compute(in Input) (Breakdown, error) {
	if in.Subtotal < 0 || in.WeightGrams < 0 {
		return Breakdown{}, errNegativeAmount
	}
	if in.Shipping != nil && (!in.Shipping.IsActive || in.Shipping.StoreID != in.StoreID) {
		return Breakdown{}, domain.ErrShippingRateUnavailable
	}

	b := Breakdown{Subtotal: in.Subtotal}
	b.Discount, b.PromoReason = DiscountAmount(in.Promo, in.Subtotal, in.Now)
	b.PromoApplied = b.PromoReason == ReasonNone

	b.Base = in.Subtotal - b.Discount
	if b.Base < 0 {
		b.Base = 0
	}
	b.Shipping = ShippingFee(in.Shipping, in.WeightGrams)
	b.Fee = PlatformFee(in.Settings, b.Base)

	rate := TaxRate(in.Settings, in.StoreTaxRate)
	b.Tax = roundHalfUp(decimal.NewFromInt(b.Base + b.Shipping + b.Fee).Mul(rate))

	b.Total = b.Base + b.Shipping + b.Fee + b.Tax
	return b, nil
}

// DiscountAmount returns the discount for a promo, or zero and the reason it
// did not apply.
func DiscountAmount(d *domain.Discount, subtotal int64, now time.Time) (int64, string) {
	if d == nil {
		return 0, ReasonNoPromo
	}
	switch {
	case !d.IsActive:
		return 0, ReasonInactive
	case d.StartDate != nil && now.Before(*d.StartDate):
		return 0, ReasonNotStarted
	case d.EndDate != nil && now.After(*d.EndDate):
		return 0, ReasonExpired
	case d.MinPurchaseAmount != nil && subtotal < *d.MinPurchaseAmount:
		return 0, ReasonBelowMinimum
	case d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit:
		return 0, ReasonExhausted
	}

	var amount int64
	switch d.Type {
	case domain.DiscountPercentage:
		amount = roundHalfUp(decimal.NewFromInt(subtotal).Mul(d.Value).Div(hundred))
	default:
		amount = roundHalfUp(d.Value)
	}
	if d.MaxDiscountAmount != nil && amount > *d.MaxDiscountAmount {
		amount = *d.MaxDiscountAmount
	}
	if amount < 0 {
		amount = 0
	}
	return amount, ReasonNone
}

// ShippingFee charges per started kilogram with a one kilogram minimum for per_kg rates.
func ShippingFee(rate *domain.ShippingRate, weightGrams int64) int64 {
	if rate == nil {
		return 0
	}
	if rate.PricingMode != domain.PricingPerKg {
		return rate.Amount
	}
	kg := (weightGrams + 999) / 1000
	if kg < 1 {
		kg = 1
	}
	return kg * rate.AmountPerKg
}

func PlatformFee(settings *domain.PlatformSettings, base int64) int64 {
	if settings == nil {
		return 0
	}
	switch settings.FeeType {
	case domain.FeePercent:
		return roundHalfUp(decimal.NewFromInt(base).Mul(settings.FeeValue).Div(hundred))
	case domain.FeeFixed:
		return roundHalfUp(settings.FeeValue)
	default:
		return 0
	}
}

// TaxRate prefers the platform settings override, then the store default.
func TaxRate(settings *domain.PlatformSettings, storeRate *decimal.Decimal) decimal.Decimal {
	if settings != nil && settings.TaxRate != nil {
		return *settings.TaxRate
	}
	if storeRate != nil {
		return *storeRate
	}
	return decimal.Zero
}

func roundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
