package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
)

const productColumns = `
SELECT id::text, business_id::text, sku, name, COALESCE(description, ''), selling_price, weight_grams, stock,
       is_active, availability_status, is_pinned, sort_order, COALESCE(image_url, ''), created_at
FROM products
`

const variantColumns = `
SELECT id::text, product_id::text, name, COALESCE(sku, ''), price_override, weight_grams, stock,
       is_active, availability_status
FROM product_variants
`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) ListActiveByBusiness(ctx context.Context, businessID string) ([]domain.Product, error) {
	q := productColumns + `
WHERE business_id = $1 AND is_active
ORDER BY is_pinned DESC, sort_order ASC, created_at DESC
`
	rows, err := r.pool.Query(ctx, q, businessID)
	if err != nil {
		r.logger.Error("product repo: list", zap.String("business_id", businessID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	index := map[string]int{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(result)
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("product repo: list rows", zap.String("business_id", businessID), zap.Error(err))
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	vrows, err := r.pool.Query(ctx, variantColumns+`
WHERE product_id IN (SELECT id FROM products WHERE business_id = $1 AND is_active) AND is_active
ORDER BY name ASC
`, businessID)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		v, err := scanVariant(vrows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[v.ProductID]; ok {
			result[i].Variants = append(result[i].Variants, *v)
		}
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug("product repo: list", zap.String("business_id", businessID), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if !db.ValidUUID(id) {
		return nil, domain.ErrNotFound
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, productColumns+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug("product repo: get not found", zap.String("id", id))
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetVariant(ctx context.Context, id string) (*domain.ProductVariant, error) {
	if !db.ValidUUID(id) {
		return nil, domain.ErrNotFound
	}
	return scanVariant(r.pool.QueryRow(ctx, variantColumns+`WHERE id = $1`, id))
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (business_id, sku, name, description, selling_price, weight_grams, stock, is_active,
                      availability_status, is_pinned, sort_order, image_url)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
ON CONFLICT (business_id, sku) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    selling_price = EXCLUDED.selling_price,
    weight_grams = EXCLUDED.weight_grams,
    stock = EXCLUDED.stock,
    is_active = EXCLUDED.is_active,
    availability_status = EXCLUDED.availability_status,
    is_pinned = EXCLUDED.is_pinned,
    sort_order = EXCLUDED.sort_order,
    image_url = EXCLUDED.image_url
RETURNING id::text, created_at
`
	status := product.AvailabilityStatus
	if status == "" {
		status = domain.AvailabilityInStock
	}
	res := product
	res.AvailabilityStatus = status
	err := r.pool.QueryRow(ctx, q,
		product.BusinessID,
		product.SKU,
		product.Name,
		product.Description,
		product.SellingPrice,
		product.WeightGrams,
		product.Stock,
		product.IsActive,
		string(status),
		product.IsPinned,
		product.SortOrder,
		product.ImageURL,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("product repo: upsert", zap.String("sku", product.SKU), zap.String("business_id", product.BusinessID), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: upserted", zap.String("sku", res.SKU), zap.String("id", res.ID))
	return &res, nil
}

func (r *postgresRepo) UpsertVariant(ctx context.Context, variant domain.ProductVariant) (*domain.ProductVariant, error) {
	const q = `
INSERT INTO product_variants (product_id, name, sku, price_override, weight_grams, stock, is_active, availability_status)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
ON CONFLICT (product_id, name) DO UPDATE SET
    sku = EXCLUDED.sku,
    price_override = EXCLUDED.price_override,
    weight_grams = EXCLUDED.weight_grams,
    stock = EXCLUDED.stock,
    is_active = EXCLUDED.is_active,
    availability_status = EXCLUDED.availability_status
RETURNING id::text
`
	status := variant.AvailabilityStatus
	if status == "" {
		status = domain.AvailabilityInStock
	}
	res := variant
	res.AvailabilityStatus = status
	err := r.pool.QueryRow(ctx, q,
		variant.ProductID,
		variant.Name,
		variant.SKU,
		variant.PriceOverride,
		variant.WeightGrams,
		variant.Stock,
		variant.IsActive,
		string(status),
	).Scan(&res.ID)
	if err != nil {
		r.logger.Error("product repo: upsert variant", zap.String("product_id", variant.ProductID), zap.String("name", variant.Name), zap.Error(err))
		return nil, err
	}
	return &res, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.BusinessID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.SellingPrice,
		&p.WeightGrams,
		&p.Stock,
		&p.IsActive,
		&p.AvailabilityStatus,
		&p.IsPinned,
		&p.SortOrder,
		&p.ImageURL,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanVariant(row pgx.Row) (*domain.ProductVariant, error) {
	var v domain.ProductVariant
	err := row.Scan(
		&v.ID,
		&v.ProductID,
		&v.Name,
		&v.SKU,
		&v.PriceOverride,
		&v.WeightGrams,
		&v.Stock,
		&v.IsActive,
		&v.AvailabilityStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
