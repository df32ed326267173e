package sale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
)

const maxSaleNumberAttempts = 5

const saleColumns = `
SELECT id::text, store_id::text, business_id::text, sale_number, subtotal, discount_amount, tax_amount,
       delivery_fee, fee_amount, total_amount, status, sale_source,
       COALESCE(customer_email, ''), COALESCE(customer_name, ''), COALESCE(customer_phone, ''),
       COALESCE(customer_address, ''), promo_code, shipping_rate_id::text, payment_url, created_at
FROM sales
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

func (r *postgresRepo) CreatePending(ctx context.Context, in CreateInput) (*domain.Sale, error) {
	if in.NewSaleNumber == nil {
		return nil, errors.New("sale repo: sale number generator is required")
	}
	for attempt := 1; attempt <= maxSaleNumberAttempts; attempt++ {
		s := in.Sale
		s.SaleNumber = in.NewSaleNumber()
		s.Status = domain.SaleStatusPending
		if s.Source == "" {
			s.Source = domain.SaleSourceOnline
		}

		err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
			return r.insertSale(ctx, tx, &s, in)
		})
		if err == nil {
			return &s, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, err
		}
		r.logger.Warn("sale repo: sale number collision", zap.String("sale_number", s.SaleNumber), zap.Int("attempt", attempt))
	}
	return nil, ErrSaleNumberExhausted
}

func (r *postgresRepo) insertSale(ctx context.Context, tx pgx.Tx, s *domain.Sale, in CreateInput) error {
	const saleQuery = `
INSERT INTO sales (store_id, business_id, sale_number, subtotal, discount_amount, tax_amount, delivery_fee,
                   fee_amount, total_amount, status, sale_source, customer_email, customer_name,
                   customer_phone, customer_address, promo_code, shipping_rate_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''),
        NULLIF($15, ''), $16, $17)
RETURNING id::text, created_at
`
	err := tx.QueryRow(ctx, saleQuery,
		s.StoreID,
		s.BusinessID,
		s.SaleNumber,
		s.Subtotal,
		s.DiscountAmount,
		s.TaxAmount,
		s.DeliveryFee,
		s.FeeAmount,
		s.TotalAmount,
		string(s.Status),
		string(s.Source),
		s.Customer.Email,
		s.Customer.Name,
		s.Customer.Phone,
		s.Customer.Address,
		s.PromoCode,
		s.ShippingRateID,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return err
	}

	items := make([]domain.SaleItem, len(s.Items))
	for i, item := range s.Items {
		item.SaleID = s.ID
		err := tx.QueryRow(ctx, `
INSERT INTO sales_items (sale_id, product_id, variant_id, quantity, unit_price, subtotal, name_snapshot,
                         variant_snapshot, weight_grams_snapshot)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id::text
`, s.ID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice, item.Subtotal, item.NameSnapshot,
			item.VariantSnapshot, item.WeightGramsSnapshot).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
		items[i] = item
	}
	s.Items = items

	if _, err := tx.Exec(ctx, `
INSERT INTO payments (sale_id, provider, provider_ref, amount, status)
VALUES ($1, $2, $3, $4, 'pending')
`, s.ID, in.PaymentProvider, s.SaleNumber, s.TotalAmount); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	if in.Notify != nil {
		n, err := in.Notify(s)
		if err != nil {
			return fmt.Errorf("build notification: %w", err)
		}
		if n == nil {
			return nil
		}
		if err := insertNotification(ctx, tx, s.StoreID, s.ID, *n); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresRepo) GetBySaleNumber(ctx context.Context, saleNumber string) (*domain.Sale, error) {
	var s domain.Sale
	err := r.pool.QueryRow(ctx, saleColumns+`WHERE sale_number = $1`, saleNumber).Scan(
		&s.ID,
		&s.StoreID,
		&s.BusinessID,
		&s.SaleNumber,
		&s.Subtotal,
		&s.DiscountAmount,
		&s.TaxAmount,
		&s.DeliveryFee,
		&s.FeeAmount,
		&s.TotalAmount,
		&s.Status,
		&s.Source,
		&s.Customer.Email,
		&s.Customer.Name,
		&s.Customer.Phone,
		&s.Customer.Address,
		&s.PromoCode,
		&s.ShippingRateID,
		&s.PaymentURL,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT id::text, sale_id::text, product_id::text, variant_id::text, quantity, unit_price, subtotal,
       name_snapshot, variant_snapshot, weight_grams_snapshot
FROM sales_items
WHERE sale_id = $1
ORDER BY id
`, s.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(
			&item.ID,
			&item.SaleID,
			&item.ProductID,
			&item.VariantID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.NameSnapshot,
			&item.VariantSnapshot,
			&item.WeightGramsSnapshot,
		); err != nil {
			return nil, err
		}
		s.Items = append(s.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) SetPaymentURL(ctx context.Context, saleID, url string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE sales SET payment_url = $2, updated_at = now() WHERE id = $1`, saleID, url)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) MarkPaid(ctx context.Context, saleID string, effects PaidEffects) (bool, error) {
	applied := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			storeID    string
			businessID string
			promoCode  *string
		)
		err := tx.QueryRow(ctx, `
UPDATE sales
SET status = 'paid', updated_at = now()
WHERE id = $1 AND status <> 'paid'
RETURNING store_id::text, business_id::text, promo_code
`, saleID).Scan(&storeID, &businessID, &promoCode)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		applied = true

		if err := decrementStock(ctx, tx, saleID); err != nil {
			return err
		}

		if promoCode != nil && *promoCode != "" {
			cmd, err := tx.Exec(ctx, `
UPDATE discounts
SET used_count = used_count + 1
WHERE business_id = $1 AND code = upper($2) AND (usage_limit IS NULL OR used_count < usage_limit)
`, businessID, *promoCode)
			if err != nil {
				return fmt.Errorf("increment promo usage: %w", err)
			}
			if cmd.RowsAffected() == 0 {
				r.logger.Warn("sale repo: promo usage not incremented", zap.String("sale_id", saleID), zap.String("promo_code", *promoCode))
			}
		}

		if effects.Notification != nil {
			if err := insertNotification(ctx, tx, storeID, saleID, *effects.Notification); err != nil {
				return err
			}
		}

		if effects.Analytics != nil {
			payload := effects.Analytics.Payload
			if len(payload) == 0 {
				payload = json.RawMessage(`{}`)
			}
			if _, err := tx.Exec(ctx, `
INSERT INTO analytics_events (store_id, sale_id, event, payload)
VALUES ($1, $2, $3, $4)
`, storeID, saleID, effects.Analytics.Event, []byte(payload)); err != nil {
				return fmt.Errorf("insert analytics event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, saleID string, status domain.SaleStatus) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE sales
SET status = $2, updated_at = now()
WHERE id = $1 AND status <> 'paid'
`, saleID, string(status))
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func decrementStock(ctx context.Context, tx pgx.Tx, saleID string) error {
	if _, err := tx.Exec(ctx, `
UPDATE product_variants v
SET stock = GREATEST(v.stock - s.qty, 0)
FROM (
    SELECT variant_id, SUM(quantity) AS qty
    FROM sales_items
    WHERE sale_id = $1 AND variant_id IS NOT NULL
    GROUP BY variant_id
) s
WHERE v.id = s.variant_id AND v.stock IS NOT NULL
`, saleID); err != nil {
		return fmt.Errorf("decrement variant stock: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE products p
SET stock = GREATEST(p.stock - s.qty, 0)
FROM (
    SELECT product_id, SUM(quantity) AS qty
    FROM sales_items
    WHERE sale_id = $1 AND variant_id IS NULL
    GROUP BY product_id
) s
WHERE p.id = s.product_id AND p.stock IS NOT NULL
`, saleID); err != nil {
		return fmt.Errorf("decrement product stock: %w", err)
	}
	return nil
}

func insertNotification(ctx context.Context, tx pgx.Tx, storeID, saleID string, n domain.Notification) error {
	payload := n.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO notifications (store_id, sale_id, channel, template, recipient, payload_json, status)
VALUES ($1, $2, $3, $4, $5, $6, 'pending')
`, storeID, saleID, n.Channel, n.Template, n.Recipient, []byte(payload)); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
