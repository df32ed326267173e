package notification

import (
	"context"
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

func (r *postgresRepo) ListPending(ctx context.Context, limit int) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, store_id::text, sale_id::text, channel, template, recipient, payload_json, status, attempts, created_at
FROM notifications
WHERE status = 'pending'
ORDER BY attempts ASC, created_at ASC, id ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			n       domain.Notification
			payload []byte
		)
		if err := rows.Scan(&n.ID, &n.StoreID, &n.SaleID, &n.Channel, &n.Template, &n.Recipient, &payload, &n.Status, &n.Attempts, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Payload = payload
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkQueued(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
UPDATE notifications
SET status = 'queued'
WHERE id = ANY($1::uuid[]) AND status = 'pending'
`, ids)
	return err
}

func (r *postgresRepo) MarkFailed(ctx context.Context, id, reason string, maxAttempts int) (bool, error) {
	var status string
	err := r.pool.QueryRow(ctx, `
UPDATE notifications
SET attempts = attempts + 1,
    last_error = $2,
    status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE status END
WHERE id = $1 AND status = 'pending'
RETURNING status
`, id, reason, maxAttempts).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return status == domain.NotificationFailed, nil
}
