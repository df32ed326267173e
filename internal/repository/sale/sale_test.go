package sale

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
	"storefront/internal/repository/repotest"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func sequence(numbers ...string) func() string {
	i := 0
	return func() string {
		n := numbers[i%len(numbers)]
		i++
		return n
	}
}

type fixture struct {
	tenant    repotest.Tenant
	productID string
	variantID string
}

func seed(t *testing.T, pool *pgxpool.Pool) fixture {
	t.Helper()
	tn := repotest.SeedTenant(t, pool, "kopi")
	productID := repotest.SeedProduct(t, pool, tn.BusinessID, "BEANS", 50000, intPtr(5))
	variantID := repotest.SeedVariant(t, pool, productID, "1kg", intPtr(1))
	_, err := pool.Exec(context.Background(), `
INSERT INTO discounts (business_id, code, type, value, usage_limit) VALUES ($1, 'HEMAT', 'fixed', 5000, 10)
`, tn.BusinessID)
	require.NoError(t, err)
	return fixture{tenant: tn, productID: productID, variantID: variantID}
}

func pendingSale(f fixture) domain.Sale {
	return domain.Sale{
		StoreID:     f.tenant.StoreID,
		BusinessID:  f.tenant.BusinessID,
		Subtotal:    150000,
		TotalAmount: 145000,
		Customer:    domain.CustomerContact{Email: "a@example.com", Name: "Ani"},
		PromoCode:   strPtr("HEMAT"),
		Items: []domain.SaleItem{
			{ProductID: f.productID, Quantity: 2, UnitPrice: 50000, Subtotal: 100000, NameSnapshot: "Beans", WeightGramsSnapshot: 250},
			{ProductID: f.productID, VariantID: &f.variantID, Quantity: 3, UnitPrice: 50000, Subtotal: 150000, NameSnapshot: "Beans", VariantSnapshot: strPtr("1kg")},
		},
	}
}

func count(t *testing.T, pool *pgxpool.Pool, q string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), q, args...).Scan(&n))
	return n
}

func TestPostgres_CreatePendingWritesEverything(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	f := seed(t, pool)
	repo := NewPostgres(pool, nil)

	created, err := repo.CreatePending(ctx, CreateInput{
		Sale:            pendingSale(f),
		PaymentProvider: "midtrans",
		Notify: func(s *domain.Sale) (*domain.Notification, error) {
			return &domain.Notification{Channel: domain.ChannelEmail, Template: domain.TemplateOrderCreated, Recipient: "a@example.com"}, nil
		},
		NewSaleNumber: sequence("INV-20240101-000001"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusPending, created.Status)
	assert.Equal(t, domain.SaleSourceOnline, created.Source)

	got, err := repo.GetBySaleNumber(ctx, "INV-20240101-000001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, "Ani", got.Customer.Name)
	assert.Nil(t, got.PaymentURL)

	assert.Equal(t, 1, count(t, pool, `SELECT count(*) FROM payments WHERE provider = 'midtrans' AND provider_ref = $1 AND status = 'pending'`, "INV-20240101-000001"))
	assert.Equal(t, 1, count(t, pool, `SELECT count(*) FROM notifications WHERE sale_id = $1 AND template = 'order_created'`, created.ID))

	require.NoError(t, repo.SetPaymentURL(ctx, created.ID, "https://pay.example.com/x"))
	got, err = repo.GetBySaleNumber(ctx, "INV-20240101-000001")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/x", *got.PaymentURL)
}

func TestPostgres_CreatePendingRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	f := seed(t, pool)
	repo := NewPostgres(pool, nil)

	_, err := repo.CreatePending(ctx, CreateInput{Sale: pendingSale(f), PaymentProvider: "midtrans", NewSaleNumber: sequence("INV-20240101-111111")})
	require.NoError(t, err)

	second, err := repo.CreatePending(ctx, CreateInput{
		Sale:            pendingSale(f),
		PaymentProvider: "midtrans",
		NewSaleNumber:   sequence("INV-20240101-111111", "INV-20240101-222222"),
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-20240101-222222", second.SaleNumber)
	assert.Equal(t, 2, count(t, pool, `SELECT count(*) FROM sales`))

	_, err = repo.CreatePending(ctx, CreateInput{Sale: pendingSale(f), PaymentProvider: "midtrans", NewSaleNumber: sequence("INV-20240101-111111")})
	assert.ErrorIs(t, err, ErrSaleNumberExhausted)
	assert.Equal(t, 2, count(t, pool, `SELECT count(*) FROM sales`), "collided attempts leave no partial rows")
}

func TestPostgres_MarkPaidAppliesEffectsOnce(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	f := seed(t, pool)
	repo := NewPostgres(pool, nil)

	created, err := repo.CreatePending(ctx, CreateInput{Sale: pendingSale(f), PaymentProvider: "midtrans", NewSaleNumber: sequence("INV-20240101-000002")})
	require.NoError(t, err)

	effects := PaidEffects{
		Notification: &domain.Notification{Channel: domain.ChannelEmail, Template: domain.TemplateOrderPaid, Recipient: "a@example.com", Payload: json.RawMessage(`{"saleNumber":"INV-20240101-000002"}`)},
		Analytics:    &domain.AnalyticsEvent{Event: "purchase"},
	}
	for i := 0; i < 3; i++ {
		applied, err := repo.MarkPaid(ctx, created.ID, effects)
		require.NoError(t, err)
		assert.Equal(t, i == 0, applied, fmt.Sprintf("attempt %d", i))
	}

	assert.Equal(t, 3, count(t, pool, `SELECT stock FROM products WHERE id = $1`, f.productID))
	assert.Equal(t, 0, count(t, pool, `SELECT stock FROM product_variants WHERE id = $1`, f.variantID), "stock is floored at zero")
	assert.Equal(t, 1, count(t, pool, `SELECT used_count FROM discounts WHERE code = 'HEMAT'`))
	assert.Equal(t, 1, count(t, pool, `SELECT count(*) FROM notifications WHERE template = 'order_paid'`))
	assert.Equal(t, 1, count(t, pool, `SELECT count(*) FROM analytics_events WHERE event = 'purchase'`))

	updated, err := repo.UpdateStatus(ctx, created.ID, domain.SaleStatusPending)
	require.NoError(t, err)
	assert.False(t, updated, "paid is terminal")

	got, err := repo.GetBySaleNumber(ctx, created.SaleNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusPaid, got.Status)
}

func TestPostgres_UpdateStatusCancels(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	f := seed(t, pool)
	repo := NewPostgres(pool, nil)

	created, err := repo.CreatePending(ctx, CreateInput{Sale: pendingSale(f), PaymentProvider: "midtrans", NewSaleNumber: sequence("INV-20240101-000003")})
	require.NoError(t, err)

	updated, err := repo.UpdateStatus(ctx, created.ID, domain.SaleStatusCancelled)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := repo.GetBySaleNumber(ctx, created.SaleNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusCancelled, got.Status)
	assert.Equal(t, 5, count(t, pool, `SELECT stock FROM products WHERE id = $1`, f.productID))

	_, err = repo.GetBySaleNumber(ctx, "INV-19990101-000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
