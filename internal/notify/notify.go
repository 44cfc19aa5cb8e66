// Package notify creates and serves user notifications. Delivery is
// best-effort: emission failures never fail the operation that triggered
// them.
package notify

import (
	"context"
	"database/sql"
	"time"
)

// Notification types emitted by the system.
const (
	TypeWelcome          = "welcome"
	TypeClassJoined      = "class_joined"
	TypeStudentJoined    = "student_joined"
	TypeAttendanceMarked = "attendance_marked"
	TypeStudentMarked    = "student_marked"
	TypeSessionClosed    = "session_closed"
)

// Notification is a message for one recipient.
type Notification struct {
	ID               int64     `json:"notification_id"`
	UserID           int64     `json:"user_id"`
	Type             string    `json:"type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	Priority         string    `json:"priority"`
	RelatedClassID   *int64    `json:"related_class_id,omitempty"`
	RelatedSessionID *int64    `json:"related_session_id,omitempty"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

// Repository persists notifications in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a notification row.
func (r *Repository) Create(ctx context.Context, n *Notification) error {
	if n.Priority == "" {
		n.Priority = "medium"
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, priority, related_class_id, related_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING notification_id, created_at`,
		n.UserID, n.Type, n.Title, n.Message, n.Priority, n.RelatedClassID, n.RelatedSessionID,
	).Scan(&n.ID, &n.CreatedAt)
}

// ListForUser returns a user's notifications, newest first. With
// unreadOnly every unread row is returned, otherwise the latest 50.
func (r *Repository) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error) {
	query := `
		SELECT notification_id, user_id, type, title, message, priority,
		       related_class_id, related_session_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read ORDER BY created_at DESC`
	} else {
		query += ` ORDER BY created_at DESC LIMIT 50`
	}
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Priority,
			&n.RelatedClassID, &n.RelatedSessionID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// UnreadCount returns the number of unread notifications for a user.
func (r *Repository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND NOT is_read`, userID).Scan(&count)
	return count, err
}

// MarkRead flags one of the user's notifications read.
func (r *Repository) MarkRead(ctx context.Context, notificationID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE notification_id = $1 AND user_id = $2`, notificationID, userID)
	return err
}

// MarkAllRead flags every unread notification for the user.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE user_id = $1 AND NOT is_read`, userID)
	return err
}

// Delete removes one of the user's notifications.
func (r *Repository) Delete(ctx context.Context, notificationID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE notification_id = $1 AND user_id = $2`, notificationID, userID)
	return err
}
