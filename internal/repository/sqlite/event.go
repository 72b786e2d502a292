package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

var _ repository.EventRepository = (*DB)(nil)

const eventColumns = `id, user_id, date, start_time, title, type, reminded_at, created_at`

func scanEvent(row rowScanner, e *model.CalendarEvent) error {
	var start, reminded sql.NullTime
	if err := row.Scan(&e.ID, &e.UserID, &e.Date, &start, &e.Title, &e.Type, &reminded, &e.CreatedAt); err != nil {
		return err
	}
	e.StartTime = nullTimePtr(start)
	e.RemindedAt = nullTimePtr(reminded)
	return nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// utcOrNil normalizes an optional time for writing.
func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// CreateEvent adds an event to the owner's calendar.
func (db *DB) CreateEvent(ctx context.Context, event *model.CalendarEvent) error {
	event.ID = xid.New().String()
	event.CreatedAt = time.Now().UTC()
	event.RemindedAt = nil
	if event.Type == "" {
		event.Type = model.EventTypeUser
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (id, user_id, date, start_time, title, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.Date, utcOrNil(event.StartTime), event.Title,
		event.Type, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating event: %w", err)
	}

	db.publish(live.EventsTopic(event.UserID))
	return nil
}

// GetEvent returns one of the user's events.
func (db *DB) GetEvent(ctx context.Context, userID, id string) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	err := scanEvent(db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE user_id = ? AND id = ?`, userID, id), &e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}
	return &e, nil
}

// UpdateEvent rewrites date, start time and title. Moving the start time
// re-arms the reminder.
func (db *DB) UpdateEvent(ctx context.Context, event *model.CalendarEvent) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE events SET
			reminded_at = CASE WHEN start_time IS ? THEN reminded_at ELSE NULL END,
			date = ?, start_time = ?, title = ?
		 WHERE user_id = ? AND id = ?`,
		utcOrNil(event.StartTime),
		event.Date, utcOrNil(event.StartTime), event.Title,
		event.UserID, event.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating event %s: %w", event.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("event", event.ID)
	}

	db.publish(live.EventsTopic(event.UserID))
	return nil
}

// DeleteEvent removes one of the user's events.
func (db *DB) DeleteEvent(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM events WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting event %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("event", id)
	}

	db.publish(live.EventsTopic(userID))
	return nil
}

// ListEvents returns the user's events ordered by date, then start time.
// Events without a start time come first within their day.
func (db *DB) ListEvents(ctx context.Context, userID string, filter repository.EventFilter) ([]model.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = ?`
	args := []any{userID}
	if filter.From != "" {
		query += ` AND date >= ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND date <= ?`
		args = append(args, filter.To)
	}
	query += ` ORDER BY date, start_time, created_at`

	return db.queryEvents(ctx, query, args...)
}

// ListDueReminders scans all users' calendars for the reminder window.
func (db *DB) ListDueReminders(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	return db.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE type = ? AND reminded_at IS NULL
		   AND start_time IS NOT NULL AND start_time >= ? AND start_time <= ?
		 ORDER BY start_time`,
		model.EventTypeUser, from.UTC(), to.UTC(),
	)
}

// CreateReminder claims the event by setting reminded_at where it is still
// NULL, and writes the notification only if the claim succeeded. Two
// overlapping runs cannot both notify.
func (db *DB) CreateReminder(ctx context.Context, event model.CalendarEvent, notification *model.Notification) (bool, error) {
	now := time.Now().UTC()
	notification.ID = xid.New().String()
	notification.CreatedAt = now
	notification.IsRead = false

	var claimed bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE events SET reminded_at = ?
			 WHERE user_id = ? AND id = ? AND reminded_at IS NULL`,
			now, event.UserID, event.ID,
		)
		if err != nil {
			return fmt.Errorf("marking event reminded: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}

		if err := insertNotification(ctx, tx, notification); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("sqlite: creating reminder for event %s: %w", event.ID, err)
	}

	if claimed {
		db.publish(live.EventsTopic(event.UserID), live.NotificationsTopic(notification.UserID))
	}
	return claimed, nil
}

func (db *DB) queryEvents(ctx context.Context, query string, args ...any) ([]model.CalendarEvent, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing events: %w", err)
	}
	defer rows.Close()

	events := make([]model.CalendarEvent, 0)
	for rows.Next() {
		var e model.CalendarEvent
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}
	return events, nil
}
