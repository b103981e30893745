package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists notifications in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a notification and returns its id.
func (r *Repository) Create(ctx context.Context, n Notification) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO notifications (recipient_id, creator_id, title, message, type, is_read, link, project_id, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, NOW()) RETURNING id`,
		n.RecipientID, n.CreatorID, n.Title, n.Message, n.Type, n.Link, n.ProjectID).Scan(&id)
	return id, err
}

// ListByRecipient returns the recipient's notifications, newest first.
func (r *Repository) ListByRecipient(ctx context.Context, recipientID int64, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, recipient_id, creator_id, title, message, type, is_read, link, project_id, created_at
FROM notifications WHERE recipient_id=$1 ORDER BY created_at DESC LIMIT $2`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.CreatorID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.Link, &n.ProjectID, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CountUnread returns the number of unread notifications for a recipient.
func (r *Repository) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND is_read=FALSE`, recipientID).Scan(&count)
	return count, err
}

// MarkRead marks one notification read, scoped to its recipient.
func (r *Repository) MarkRead(ctx context.Context, id, recipientID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND recipient_id=$2`, id, recipientID)
	return err
}

// MarkAllRead marks every notification of the recipient read.
func (r *Repository) MarkAllRead(ctx context.Context, recipientID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read=TRUE WHERE recipient_id=$1 AND is_read=FALSE`, recipientID)
	return err
}
