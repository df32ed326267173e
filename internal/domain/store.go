package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Business is the tenant. Its slug doubles as the storefront subdomain.
type Business struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	LogoURL        string    `json:"logoUrl,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	DefaultStoreID *string   `json:"defaultStoreId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Store struct {
	ID             string           `json:"id"`
	BusinessID     string           `json:"businessId"`
	Name           string           `json:"name"`
	DefaultTaxRate *decimal.Decimal `json:"defaultTaxRate,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type FeeType string

const (
	FeePercent FeeType = "percent"
	FeeFixed   FeeType = "fixed"
)

// PlatformSettings configures the per-store platform fee and an optional tax override.
type PlatformSettings struct {
	StoreID  string
	FeeType  FeeType
	FeeValue decimal.Decimal
	TaxRate  *decimal.Decimal
}

// StoreFeed is the public storefront payload served by slug.
type StoreFeed struct {
	Profile  Business  `json:"profile"`
	Products []Product `json:"products"`
}

// StoreRef identifies a store directly or through its business default.
type StoreRef struct {
	StoreID    string
	BusinessID string
}
