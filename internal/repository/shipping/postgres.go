package shipping

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
)

const rateColumns = `
SELECT id::text, store_id::text, name, pricing_mode, amount, amount_per_kg, is_active
FROM shipping_rates
`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.ShippingRate, error) {
	if !db.ValidUUID(id) {
		return nil, domain.ErrNotFound
	}
	rate, err := scanRate(r.pool.QueryRow(ctx, rateColumns+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rate, nil
}

func (r *postgresRepo) ListActiveByStore(ctx context.Context, storeID string) ([]domain.ShippingRate, error) {
	if !db.ValidUUID(storeID) {
		return []domain.ShippingRate{}, nil
	}
	rows, err := r.pool.Query(ctx, rateColumns+`
WHERE store_id = $1 AND is_active
ORDER BY amount ASC, amount_per_kg ASC, name ASC
`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := []domain.ShippingRate{}
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, *rate)
	}
	return rates, rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, rate domain.ShippingRate) (*domain.ShippingRate, error) {
	const q = `
INSERT INTO shipping_rates (store_id, name, pricing_mode, amount, amount_per_kg, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text
`
	out := rate
	if err := r.pool.QueryRow(ctx, q, rate.StoreID, rate.Name, string(rate.PricingMode), rate.Amount, rate.AmountPerKg, rate.IsActive).Scan(&out.ID); err != nil {
		return nil, err
	}
	return &out, nil
}

func scanRate(row pgx.Row) (*domain.ShippingRate, error) {
	var rate domain.ShippingRate
	if err := row.Scan(&rate.ID, &rate.StoreID, &rate.Name, &rate.PricingMode, &rate.Amount, &rate.AmountPerKg, &rate.IsActive); err != nil {
		return nil, err
	}
	return &rate, nil
}
