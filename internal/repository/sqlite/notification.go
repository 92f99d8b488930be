package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

const notificationColumns = `id, user_id, type, title, message, item_id, item_kind, read, created_at`

// insertBatchSize keeps multi-value inserts comfortably under SQLite's
// bound-parameter limit (9 columns per row).
const insertBatchSize = 100

func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	n.ID = xid.New().String()
	n.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, item_id, item_kind, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.ItemID, n.ItemKind, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating notification: %w", err)
	}

	return nil
}

// CreateNotifications bulk-inserts rows, assigning IDs and timestamps in
// place. A broadcast to N users is ceil(N/100) statements instead of N.
func (db *DB) CreateNotifications(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	now := time.Now()
	for start := 0; start < len(ns); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(ns) {
			end = len(ns)
		}
		batch := ns[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO notifications (id, user_id, type, title, message, item_id, item_kind, read, created_at) VALUES `)
		args := make([]any, 0, len(batch)*9)
		for i := range batch {
			n := &batch[i]
			n.ID = xid.New().String()
			n.CreatedAt = now

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, n.ID, n.UserID, n.Type, n.Title, n.Message, n.ItemID, n.ItemKind, n.Read, n.CreatedAt)
		}

		if _, err := db.conn.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("sqlite: bulk inserting notifications: %w", err)
		}
	}

	return nil
}

func (db *DB) ListForUser(ctx context.Context, userID string, page repository.Page) ([]model.Notification, int, error) {
	size := page.Size
	if size <= 0 {
		size = 50
	}
	if size > 100 {
		size = 100
	}
	number := page.Number
	if number < 1 {
		number = 1
	}
	offset := (number - 1) * size

	where := `user_id = ?`
	args := []any{userID}
	if page.UnreadOnly {
		where += ` AND read = 0`
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting notifications: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE `+where+`
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, size, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0, size)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.ItemID, &n.ItemKind, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating notifications: %w", err)
	}

	return notifications, total, nil
}

func (db *DB) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips the read flag on one of the caller's own rows. A row id
// that exists but belongs to someone else is reported as NotFound, the
// same as a row that does not exist.
func (db *DB) MarkRead(ctx context.Context, id, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification %s read: %w", id, err)
	}
	return checkAffected(result, "notification", id)
}

func (db *DB) MarkAllRead(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking all notifications read: %w", err)
	}
	return nil
}

func (db *DB) DeleteNotification(ctx context.Context, id, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting notification %s: %w", id, err)
	}
	return checkAffected(result, "notification", id)
}

func (db *DB) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = ?`, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting all notifications: %w", err)
	}
	return nil
}
