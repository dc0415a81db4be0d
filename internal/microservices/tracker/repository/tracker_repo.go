package repository

import (
	"context"
	"database/sql"
	"time"

	"sushi-system/internal/domain"
	"sushi-system/internal/microservices/tracker/models"
)

type TrackerRepoInterface interface {
	EnsureSchema(ctx context.Context) error
	AppendChange(ctx context.Context, c models.StatusChange) error
	GetOrderTimeline(ctx context.Context, orderID int, since time.Time, limit, offset int) ([]models.StatusChange, error)
}

type TrackerRepo struct {
	db *sql.DB
}

func NewTrackerRepo(db *sql.DB) *TrackerRepo { return &TrackerRepo{db: db} }

const schema = `
CREATE TABLE IF NOT EXISTS order_status_log (
  id          BIGSERIAL PRIMARY KEY,
  order_id    INTEGER     NOT NULL,
  username    TEXT        NOT NULL DEFAULT '',
  old_status  TEXT,
  new_status  TEXT        NOT NULL,
  changed_by  TEXT        NOT NULL DEFAULT '',
  changed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS order_status_log_order_idx ON order_status_log (order_id, changed_at);
`

func (r *TrackerRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *TrackerRepo) AppendChange(ctx context.Context, c models.StatusChange) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO order_status_log (order_id, username, old_status, new_status, changed_by, changed_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, c.OrderID, c.Username, nullIfEmpty(string(c.OldStatus)), string(c.NewStatus), c.ChangedBy, c.ChangedAt)
	return err
}

// GetOrderTimeline returns the changes of orderID made at or after since.
// Order ids are reused once a record is deleted, so since is the creation
// time of the order the caller means.
func (r *TrackerRepo) GetOrderTimeline(ctx context.Context, orderID int, since time.Time, limit, offset int) ([]models.StatusChange, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, order_id, username, COALESCE(old_status,''), new_status, changed_by, changed_at
FROM order_status_log WHERE order_id=$1 AND changed_at >= $2
ORDER BY changed_at ASC, id ASC
LIMIT $3 OFFSET $4
`, orderID, since.Truncate(time.Microsecond), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StatusChange
	for rows.Next() {
		var (
			c                    models.StatusChange
			oldStatus, newStatus string
		)
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Username, &oldStatus, &newStatus, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		c.OldStatus = domain.OrderStatus(oldStatus)
		c.NewStatus = domain.OrderStatus(newStatus)
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
