package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"coursehub/internal/models"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n models.Notification) error {
	const query = `
		INSERT INTO notifications (id, title, message, status, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, n.ID, n.Title, n.Message, n.Status, n.UserID)
	return err
}

func (r *NotificationRepository) List(ctx context.Context) ([]models.Notification, error) {
	const query = `
		SELECT id, title, message, status, user_id, created_at, updated_at
		FROM notifications
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Status, &n.UserID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE notifications SET status = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, models.NotificationRead)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// DeleteReadBefore removes read notifications last touched before cutoff.
func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM notifications WHERE status = $1 AND updated_at < $2`
	cmd, err := r.pool.Exec(ctx, query, models.NotificationRead, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
