package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
	"storefront/internal/repository/repotest"
)

func TestPostgres_ListActiveByBusinessOrdering(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	tn := repotest.SeedTenant(t, pool, "kopi")
	repo := NewPostgres(pool, nil)

	plain, err := repo.Upsert(ctx, domain.Product{BusinessID: tn.BusinessID, SKU: "A", Name: "Plain", SellingPrice: 1000, IsActive: true, SortOrder: 1})
	require.NoError(t, err)
	pinned, err := repo.Upsert(ctx, domain.Product{BusinessID: tn.BusinessID, SKU: "B", Name: "Pinned", SellingPrice: 1000, IsActive: true, IsPinned: true, SortOrder: 9})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domain.Product{BusinessID: tn.BusinessID, SKU: "C", Name: "Hidden", SellingPrice: 1000, IsActive: false})
	require.NoError(t, err)

	price := int64(1500)
	_, err = repo.UpsertVariant(ctx, domain.ProductVariant{ProductID: plain.ID, Name: "Large", PriceOverride: &price, IsActive: true})
	require.NoError(t, err)

	list, err := repo.ListActiveByBusiness(ctx, tn.BusinessID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, pinned.ID, list[0].ID)
	assert.Equal(t, plain.ID, list[1].ID)
	require.Len(t, list[1].Variants, 1)
	assert.Equal(t, int64(1500), *list[1].Variants[0].PriceOverride)
}

func TestPostgres_UpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	tn := repotest.SeedTenant(t, pool, "toko")
	repo := NewPostgres(pool, nil)

	p, err := repo.Upsert(ctx, domain.Product{BusinessID: tn.BusinessID, SKU: "SKU1", Name: "Prod 1", SellingPrice: 100, IsActive: true})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	updated, err := repo.Upsert(ctx, domain.Product{BusinessID: tn.BusinessID, SKU: "SKU1", Name: "Prod 1 updated", Description: "new desc", SellingPrice: 200, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, p.ID, updated.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new desc", got.Description)
	assert.Equal(t, int64(200), got.SellingPrice)
	assert.Nil(t, got.Stock)

	_, err = repo.GetVariant(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_MalformedIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(repotest.Pool(t), nil)

	_, err := repo.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetVariant(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
