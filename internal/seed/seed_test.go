package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
	businessrepo "storefront/internal/repository/business"
	discountrepo "storefront/internal/repository/discount"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/repository/repotest"
	shippingrepo "storefront/internal/repository/shipping"
	storerepo "storefront/internal/repository/store"
)

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)

	require.NoError(t, Apply(ctx, pool, nil))
	require.NoError(t, Apply(ctx, pool, nil))

	var businesses, stores, products, variants, rates int
	require.NoError(t, pool.QueryRow(ctx, `
SELECT (SELECT count(*) FROM businesses),
       (SELECT count(*) FROM stores),
       (SELECT count(*) FROM products),
       (SELECT count(*) FROM product_variants),
       (SELECT count(*) FROM shipping_rates)
`).Scan(&businesses, &stores, &products, &variants, &rates))
	assert.Equal(t, 1, businesses)
	assert.Equal(t, 1, stores)
	assert.Equal(t, 3, products)
	assert.Equal(t, 2, variants)
	assert.Equal(t, 2, rates)

	business, err := businessrepo.NewPostgres(pool).GetBySlug(ctx, demoSlug)
	require.NoError(t, err)
	require.NotNil(t, business.DefaultStoreID)

	store, err := storerepo.NewPostgres(pool).DefaultForBusiness(ctx, business.ID)
	require.NoError(t, err)
	assert.Equal(t, *business.DefaultStoreID, store.ID)
	require.NotNil(t, store.DefaultTaxRate)
	assert.Equal(t, "0.11", store.DefaultTaxRate.String())

	feed, err := productrepo.NewPostgres(pool, nil).ListActiveByBusiness(ctx, business.ID)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, "DEMO-KOPI", feed[0].SKU, "pinned product first")
	assert.Len(t, feed[0].Variants, 2)

	list, err := shippingrepo.NewPostgres(pool).ListActiveByStore(ctx, store.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.PricingFlat, list[1].PricingMode, "per_kg rate has zero flat amount and sorts first")

	promo, err := discountrepo.NewPostgres(pool).GetByCode(ctx, business.ID, "hemat10")
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountPercentage, promo.Type)
	assert.Equal(t, 0, promo.UsedCount)
}
