package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
)

const cartColumns = `
SELECT id::text, store_id::text, session_id, created_at
FROM carts
`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetOrCreate(ctx context.Context, storeID, sessionID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (store_id, session_id)
VALUES ($1, $2)
ON CONFLICT (store_id, session_id) DO UPDATE SET session_id = EXCLUDED.session_id
RETURNING id::text
`
	var cartID string
	if err := r.pool.QueryRow(ctx, q, storeID, sessionID).Scan(&cartID); err != nil {
		return nil, err
	}
	return r.fetchCart(ctx, cartColumns+`WHERE id = $1`, cartID)
}

func (r *postgresRepo) GetBySession(ctx context.Context, storeID, sessionID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, cartColumns+`WHERE store_id = $1 AND session_id = $2`, storeID, sessionID)
}

// AddLineItem upserts against uq_cart_items_line so concurrent first adds of
// the same line merge instead of racing on the insert. Snapshots are kept from
// the first add.
func (r *postgresRepo) AddLineItem(ctx context.Context, cartID string, line NewLine) error {
	const q = `
INSERT INTO cart_items (cart_id, product_id, variant_id, quantity, price_snapshot, name_snapshot, variant_snapshot, weight_grams_snapshot)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (cart_id, product_id, COALESCE(variant_id, '00000000-0000-0000-0000-000000000000'::uuid))
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
`
	_, err := r.pool.Exec(ctx, q, cartID, line.ProductID, line.VariantID, line.Quantity,
		line.PriceSnapshot, line.NameSnapshot, line.VariantSnapshot, line.WeightGramsSnapshot)
	return err
}

func (r *postgresRepo) SetLineQuantity(ctx context.Context, cartID, productID string, variantID *string, quantity int) error {
	if !db.ValidUUID(productID) || !db.ValidOptionalUUID(variantID) {
		return domain.ErrNotFound
	}
	if quantity <= 0 {
		return r.deleteLine(ctx, cartID, productID, variantID, true)
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_items
SET quantity = $4
WHERE cart_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3::uuid
`, cartID, productID, variantID, quantity)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RemoveLineItem(ctx context.Context, cartID, productID string, variantID *string) error {
	if !db.ValidUUID(productID) || !db.ValidOptionalUUID(variantID) {
		return nil
	}
	return r.deleteLine(ctx, cartID, productID, variantID, false)
}

func (r *postgresRepo) deleteLine(ctx context.Context, cartID, productID string, variantID *string, mustExist bool) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3::uuid
`, cartID, productID, variantID)
	if err != nil {
		return err
	}
	if mustExist && cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) fetchCart(ctx context.Context, cartQuery string, args ...any) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, args...).Scan(
		&cart.ID,
		&cart.StoreID,
		&cart.SessionID,
		&cart.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const itemsQuery = `
SELECT id::text, cart_id::text, product_id::text, variant_id::text, quantity, price_snapshot,
       name_snapshot, variant_snapshot, weight_grams_snapshot, created_at
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.VariantID,
			&item.Quantity,
			&item.PriceSnapshot,
			&item.NameSnapshot,
			&item.VariantSnapshot,
			&item.WeightGramsSnapshot,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}
