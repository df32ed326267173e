// Package repotest provides a migrated Postgres pool for repository integration tests.
package repotest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"storefront/internal/migrate"
)

const truncateAll = `
TRUNCATE analytics_events, notifications, webhook_events, payments, sales_items, sales,
         cart_items, carts, shipping_rates, discounts, product_variants, products,
         store_platform_settings, stores, businesses RESTART IDENTITY CASCADE
`

// Pool returns a migrated, empty database. TEST_DB_DSN points at an existing
// server; without it a throwaway postgres container is started.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = startContainer(ctx, t)
	}

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrate.Apply(ctx, pool))
	_, err = pool.Exec(ctx, truncateAll)
	require.NoError(t, err)
	return pool
}

func startContainer(ctx context.Context, t *testing.T) string {
	t.Helper()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront_test"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// Tenant is a business with a single store.
type Tenant struct {
	BusinessID string
	StoreID    string
}

func SeedTenant(t *testing.T, pool *pgxpool.Pool, slug string) Tenant {
	t.Helper()
	ctx := context.Background()
	var tn Tenant
	err := pool.QueryRow(ctx, `INSERT INTO businesses (slug, name) VALUES ($1, $1) RETURNING id::text`, slug).Scan(&tn.BusinessID)
	require.NoError(t, err)
	err = pool.QueryRow(ctx, `INSERT INTO stores (business_id, name) VALUES ($1, 'Main') RETURNING id::text`, tn.BusinessID).Scan(&tn.StoreID)
	require.NoError(t, err)
	return tn
}

// SeedProduct inserts an active in-stock product. A nil stock leaves it untracked.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, businessID, sku string, price int64, stock *int) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO products (business_id, sku, name, selling_price, weight_grams, stock)
VALUES ($1, $2, $2, $3, 250, $4)
RETURNING id::text
`, businessID, sku, price, stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func SeedVariant(t *testing.T, pool *pgxpool.Pool, productID, name string, stock *int) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO product_variants (product_id, name, stock)
VALUES ($1, $2, $3)
RETURNING id::text
`, productID, name, stock).Scan(&id)
	require.NoError(t, err)
	return id
}
