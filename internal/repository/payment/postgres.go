package payment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, provider, providerRef, status string, raw json.RawMessage) error {
	var body []byte
	if len(raw) > 0 {
		body = raw
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE payments
SET status = $3, raw_json = $4, updated_at = now()
WHERE provider = $1 AND provider_ref = $2
`, provider, providerRef, status, body)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, provider, providerRef string) (*domain.Payment, error) {
	const q = `
SELECT id::text, sale_id::text, provider, provider_ref, amount, status, raw_json, created_at, updated_at
FROM payments
WHERE provider = $1 AND provider_ref = $2
`
	var (
		p   domain.Payment
		raw []byte
	)
	err := r.pool.QueryRow(ctx, q, provider, providerRef).Scan(
		&p.ID,
		&p.SaleID,
		&p.Provider,
		&p.ProviderRef,
		&p.Amount,
		&p.Status,
		&raw,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.RawJSON = raw
	return &p, nil
}
