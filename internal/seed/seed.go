package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/domain"
	businessrepo "storefront/internal/repository/business"
	discountrepo "storefront/internal/repository/discount"
	productrepo "storefront/internal/repository/product"
	shippingrepo "storefront/internal/repository/shipping"
	storerepo "storefront/internal/repository/store"
)

const demoSlug = "demo"

type productSeed struct {
	SKU          string
	Name         string
	Description  string
	SellingPrice int64
	WeightGrams  int
	Stock        *int
	Variants     []domain.ProductVariant
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// Apply inserts a demo business with one store, products, shipping rates,
// a promo code and platform settings for manual testing. It is idempotent.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	businesses := businessrepo.NewPostgres(pool)
	stores := storerepo.NewPostgres(pool)
	products := productrepo.NewPostgres(pool, logger)
	rates := shippingrepo.NewPostgres(pool)
	discounts := discountrepo.NewPostgres(pool)

	business, err := ensureBusiness(ctx, businesses)
	if err != nil {
		return fmt.Errorf("ensure business: %w", err)
	}
	store, err := ensureStore(ctx, stores, business.ID)
	if err != nil {
		return fmt.Errorf("ensure store: %w", err)
	}

	if err := stores.SavePlatformSettings(ctx, domain.PlatformSettings{
		StoreID:  store.ID,
		FeeType:  domain.FeeFixed,
		FeeValue: decimal.NewFromInt(1000),
	}); err != nil {
		return fmt.Errorf("save platform settings: %w", err)
	}

	catalogue := []productSeed{
		{
			SKU:          "DEMO-KOPI",
			Name:         "Kopi Susu Gula Aren",
			Description:  "Es kopi susu dengan gula aren",
			SellingPrice: 18000,
			WeightGrams:  350,
			Stock:        intPtr(50),
			Variants: []domain.ProductVariant{
				{Name: "Regular", IsActive: true, Stock: intPtr(30)},
				{Name: "Large", IsActive: true, Stock: intPtr(20), PriceOverride: int64Ptr(23000), WeightGrams: intPtr(500)},
			},
		},
		{
			SKU:          "DEMO-TUMBLER",
			Name:         "Tumbler Stainless",
			Description:  "Tumbler 500ml",
			SellingPrice: 85000,
			WeightGrams:  420,
			Stock:        intPtr(10),
		},
		{
			SKU:          "DEMO-VOUCHER",
			Name:         "Gift Card",
			SellingPrice: 100000,
		},
	}
	for i, p := range catalogue {
		saved, err := products.Upsert(ctx, domain.Product{
			BusinessID:   business.ID,
			SKU:          p.SKU,
			Name:         p.Name,
			Description:  p.Description,
			SellingPrice: p.SellingPrice,
			WeightGrams:  p.WeightGrams,
			Stock:        p.Stock,
			IsActive:     true,
			IsPinned:     i == 0,
			SortOrder:    i,
		})
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
		for _, v := range p.Variants {
			v.ProductID = saved.ID
			if _, err := products.UpsertVariant(ctx, v); err != nil {
				return fmt.Errorf("upsert variant %s/%s: %w", p.SKU, v.Name, err)
			}
		}
	}

	existing, err := rates.ListActiveByStore(ctx, store.ID)
	if err != nil {
		return fmt.Errorf("list shipping rates: %w", err)
	}
	if len(existing) == 0 {
		for _, r := range []domain.ShippingRate{
			{StoreID: store.ID, Name: "Kurir Toko", PricingMode: domain.PricingFlat, Amount: 10000, IsActive: true},
			{StoreID: store.ID, Name: "Reguler", PricingMode: domain.PricingPerKg, AmountPerKg: 9000, IsActive: true},
		} {
			if _, err := rates.Create(ctx, r); err != nil {
				return fmt.Errorf("create shipping rate %s: %w", r.Name, err)
			}
		}
	}

	if _, err := discounts.Upsert(ctx, domain.Discount{
		BusinessID:        business.ID,
		Code:              "HEMAT10",
		Type:              domain.DiscountPercentage,
		Value:             decimal.NewFromInt(10),
		MaxDiscountAmount: int64Ptr(20000),
		IsActive:          true,
	}); err != nil {
		return fmt.Errorf("upsert discount: %w", err)
	}

	logger.Info("seed applied", zap.String("business_id", business.ID), zap.String("store_id", store.ID))
	return nil
}

func ensureBusiness(ctx context.Context, repo businessrepo.Repository) (*domain.Business, error) {
	b, err := repo.GetBySlug(ctx, demoSlug)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return repo.Create(ctx, domain.Business{Slug: demoSlug, Name: "Demo Coffee"})
}

func ensureStore(ctx context.Context, repo storerepo.Repository, businessID string) (*domain.Store, error) {
	s, err := repo.DefaultForBusiness(ctx, businessID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	tax := decimal.RequireFromString("0.11")
	s, err = repo.Create(ctx, domain.Store{BusinessID: businessID, Name: "Main", DefaultTaxRate: &tax})
	if err != nil {
		return nil, err
	}
	if err := repo.SetDefault(ctx, businessID, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}
