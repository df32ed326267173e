package webhook

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Exists(ctx context.Context, provider, eventID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM webhook_events WHERE provider = $1 AND event_id = $2)
`, provider, eventID).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) Record(ctx context.Context, provider, eventID string, payload json.RawMessage) (bool, error) {
	var body []byte
	if len(payload) > 0 {
		body = payload
	}
	cmd, err := r.pool.Exec(ctx, `
INSERT INTO webhook_events (provider, event_id, status, payload)
VALUES ($1, $2, 'received', $3)
ON CONFLICT (provider, event_id) DO NOTHING
`, provider, eventID, body)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresRepo) MarkProcessed(ctx context.Context, provider, eventID string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE webhook_events
SET status = 'processed', processed_at = now()
WHERE provider = $1 AND event_id = $2
`, provider, eventID)
	return err
}
