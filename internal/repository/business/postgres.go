package business

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
)

const selectColumns = `
SELECT id::text, slug, name, COALESCE(description, ''), COALESCE(logo_url, ''), COALESCE(phone, ''),
       COALESCE(address, ''), default_store_id::text, created_at
FROM businesses
`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Business, error) {
	return r.fetch(ctx, selectColumns+`WHERE slug = $1`, strings.ToLower(strings.TrimSpace(slug)))
}

func (r *postgresRepo) Create(ctx context.Context, b domain.Business) (*domain.Business, error) {
	const q = `
INSERT INTO businesses (slug, name, description, logo_url, phone, address)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
RETURNING id::text, created_at
`
	out := b
	out.Slug = strings.ToLower(strings.TrimSpace(b.Slug))
	if err := r.pool.QueryRow(ctx, q, out.Slug, b.Name, b.Description, b.LogoURL, b.Phone, b.Address).Scan(&out.ID, &out.CreatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) fetch(ctx context.Context, q string, arg string) (*domain.Business, error) {
	var b domain.Business
	err := r.pool.QueryRow(ctx, q, arg).Scan(
		&b.ID,
		&b.Slug,
		&b.Name,
		&b.Description,
		&b.LogoURL,
		&b.Phone,
		&b.Address,
		&b.DefaultStoreID,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
