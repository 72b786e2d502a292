package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

// CreateNotification appends to users/{userId}/notifications.
func (db *DB) CreateNotification(ctx context.Context, notification *model.Notification) error {
	notification.ID = xid.New().String()
	notification.CreatedAt = time.Now().UTC()
	notification.IsRead = false

	if err := insertNotification(ctx, db.conn, notification); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	db.publish(live.NotificationsTopic(notification.UserID))
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertNotification(ctx context.Context, ex execer, n *model.Notification) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, content, link, created_at, is_read)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Content, n.Link, n.CreatedAt, n.IsRead,
	)
	if err != nil {
		return fmt.Errorf("creating notification for user %s: %w", n.UserID, err)
	}
	return nil
}

// ListNotifications returns the user's notifications newest first.
func (db *DB) ListNotifications(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, content, link, created_at, is_read
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, clampLimit(opts.Limit), max(opts.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications of %s: %w", userID, err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.Link, &n.CreatedAt, &n.IsRead); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead sets isRead on one of the user's notifications.
func (db *DB) MarkNotificationRead(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification %s read: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("notification", id)
	}

	db.publish(live.NotificationsTopic(userID))
	return nil
}
