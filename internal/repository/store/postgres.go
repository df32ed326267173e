package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	if !db.ValidUUID(id) {
		return nil, domain.ErrNotFound
	}
	const q = `
SELECT id::text, business_id::text, name, default_tax_rate::text, created_at
FROM stores
WHERE id = $1
`
	return scanStore(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) DefaultForBusiness(ctx context.Context, businessID string) (*domain.Store, error) {
	if !db.ValidUUID(businessID) {
		return nil, domain.ErrNotFound
	}
	const q = `
SELECT s.id::text, s.business_id::text, s.name, s.default_tax_rate::text, s.created_at
FROM stores s
JOIN businesses b ON b.id = s.business_id
WHERE s.business_id = $1
ORDER BY (s.id = b.default_store_id) DESC NULLS LAST, s.created_at ASC
LIMIT 1
`
	return scanStore(r.pool.QueryRow(ctx, q, businessID))
}

func (r *postgresRepo) PlatformSettings(ctx context.Context, storeID string) (*domain.PlatformSettings, error) {
	if !db.ValidUUID(storeID) {
		return nil, domain.ErrNotFound
	}
	const q = `
SELECT store_id::text, fee_type, fee_value::text, tax_rate::text
FROM store_platform_settings
WHERE store_id = $1
`
	var (
		ps       domain.PlatformSettings
		feeValue string
		taxRate  *string
	)
	err := r.pool.QueryRow(ctx, q, storeID).Scan(&ps.StoreID, &ps.FeeType, &feeValue, &taxRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if ps.FeeValue, err = decimal.NewFromString(feeValue); err != nil {
		return nil, err
	}
	if ps.TaxRate, err = parseRate(taxRate); err != nil {
		return nil, err
	}
	return &ps, nil
}

func (r *postgresRepo) Create(ctx context.Context, s domain.Store) (*domain.Store, error) {
	const q = `
INSERT INTO stores (business_id, name, default_tax_rate)
VALUES ($1, $2, $3::numeric)
RETURNING id::text, created_at
`
	out := s
	if err := r.pool.QueryRow(ctx, q, s.BusinessID, s.Name, rateArg(s.DefaultTaxRate)).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) SetDefault(ctx context.Context, businessID, storeID string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE businesses SET default_store_id = $2 WHERE id = $1`, businessID, storeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SavePlatformSettings(ctx context.Context, ps domain.PlatformSettings) error {
	const q = `
INSERT INTO store_platform_settings (store_id, fee_type, fee_value, tax_rate)
VALUES ($1, $2, $3::numeric, $4::numeric)
ON CONFLICT (store_id) DO UPDATE SET
    fee_type = EXCLUDED.fee_type,
    fee_value = EXCLUDED.fee_value,
    tax_rate = EXCLUDED.tax_rate
`
	_, err := r.pool.Exec(ctx, q, ps.StoreID, string(ps.FeeType), ps.FeeValue.String(), rateArg(ps.TaxRate))
	return err
}

func scanStore(row pgx.Row) (*domain.Store, error) {
	var (
		s    domain.Store
		rate *string
	)
	if err := row.Scan(&s.ID, &s.BusinessID, &s.Name, &rate, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	parsed, err := parseRate(rate)
	if err != nil {
		return nil, err
	}
	s.DefaultTaxRate = parsed
	return &s, nil
}

func parseRate(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func rateArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
