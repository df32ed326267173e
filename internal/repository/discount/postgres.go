package discount

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByCode(ctx context.Context, businessID, code string) (*domain.Discount, error) {
	const q = `
SELECT id::text, business_id::text, code, type, value::text, min_purchase_amount, max_discount_amount,
       usage_limit, used_count, is_active, start_date, end_date
FROM discounts
WHERE business_id = $1 AND upper(code) = $2
`
	var (
		d     domain.Discount
		value string
	)
	err := r.pool.QueryRow(ctx, q, businessID, NormalizeCode(code)).Scan(
		&d.ID,
		&d.BusinessID,
		&d.Code,
		&d.Type,
		&value,
		&d.MinPurchaseAmount,
		&d.MaxDiscountAmount,
		&d.UsageLimit,
		&d.UsedCount,
		&d.IsActive,
		&d.StartDate,
		&d.EndDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if d.Value, err = decimal.NewFromString(value); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, d domain.Discount) (*domain.Discount, error) {
	const q = `
INSERT INTO discounts (business_id, code, type, value, min_purchase_amount, max_discount_amount, usage_limit,
                       is_active, start_date, end_date)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
ON CONFLICT (business_id, code) DO UPDATE SET
    type = EXCLUDED.type,
    value = EXCLUDED.value,
    min_purchase_amount = EXCLUDED.min_purchase_amount,
    max_discount_amount = EXCLUDED.max_discount_amount,
    usage_limit = EXCLUDED.usage_limit,
    is_active = EXCLUDED.is_active,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date
RETURNING id::text, used_count
`
	out := d
	out.Code = NormalizeCode(d.Code)
	err := r.pool.QueryRow(ctx, q,
		d.BusinessID,
		out.Code,
		string(d.Type),
		d.Value.String(),
		d.MinPurchaseAmount,
		d.MaxDiscountAmount,
		d.UsageLimit,
		d.IsActive,
		d.StartDate,
		d.EndDate,
	).Scan(&out.ID, &out.UsedCount)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// NormalizeCode trims and upper-cases a promo code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
