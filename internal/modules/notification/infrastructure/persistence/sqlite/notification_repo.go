package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
)

// Timestamps are unix microseconds so ordering and cutoff comparisons stay numeric.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('admin', 'talent', 'client')),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    data TEXT NOT NULL DEFAULT '{}',
    action_url TEXT NOT NULL,
    is_read INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_created
    ON notifications(user_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_notifications_unread
    ON notifications(user_id) WHERE is_read = 0;
`

type notificationRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Data      string    `db:"data"`
	ActionURL string    `db:"action_url"`
	IsRead    bool      `db:"is_read"`
	CreatedAt int64     `db:"created_at"`
	UpdatedAt int64     `db:"updated_at"`
}

func (r notificationRow) toDomain() (domain.Notification, error) {
	t := domain.NotificationType(r.Type)
	payload, err := domain.DecodePayload(t, []byte(r.Data))
	if err != nil {
		return domain.Notification{}, fmt.Errorf("notification %s: %w", r.ID, err)
	}
	return domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      t,
		Title:     r.Title,
		Message:   r.Message,
		Data:      payload,
		ActionURL: r.ActionURL,
		Read:      r.IsRead,
		CreatedAt: time.UnixMicro(r.CreatedAt).UTC(),
		UpdatedAt: time.UnixMicro(r.UpdatedAt).UTC(),
	}, nil
}

const insertNotification = `
	INSERT INTO notifications (id, user_id, type, title, message, data, action_url, is_read, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const upsertUser = `
	INSERT INTO users (id, email, display_name, role, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		email = excluded.email,
		display_name = excluded.display_name,
		role = excluded.role,
		updated_at = excluded.updated_at
`

// NotificationRepository is the embedded store used for local development and
// single-node deployments. Foreign keys are switched on per connection, so the
// pool must hold a single connection (see database.NewSQLiteDB).
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository applies the schema and returns a ready repository.
func NewNotificationRepository(ctx context.Context, db *sqlx.DB) (*NotificationRepository, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply notification schema: %w", err)
	}
	return &NotificationRepository{db: db}, nil
}

func insert(ctx context.Context, exec sqlx.ExecerContext, n *domain.Notification) error {
	data, err := domain.EncodePayload(n.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = exec.ExecContext(ctx, insertNotification,
		n.ID.String(), n.UserID.String(), string(n.Type), n.Title, n.Message, string(data),
		n.ActionURL, n.Read, n.CreatedAt.UnixMicro(), n.UpdatedAt.UnixMicro())
	return err
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return insert(ctx, r.db, n)
}

func (r *NotificationRepository) CreateMany(ctx context.Context, ns []*domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, n := range ns {
		if err := insert(ctx, tx, n); err != nil {
			return fmt.Errorf("insert notification for user %s: %w", n.UserID, err)
		}
	}
	return tx.Commit()
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, opts domain.ListOptions) ([]domain.Notification, error) {
	opts = opts.Normalize()
	query := `SELECT id, user_id, type, title, message, data, action_url, is_read, created_at, updated_at
		FROM notifications WHERE user_id = ?`
	args := []any{userID.String()}
	if opts.UnreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if !opts.Unbounded() {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	items := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, userID uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, updated_at = ? WHERE id = ? AND user_id = ? AND is_read = 0`,
		at.UnixMicro(), notificationID.String(), userID.String())
	return err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, updated_at = ? WHERE user_id = ? AND is_read = 0`,
		at.UnixMicro(), userID.String())
	return err
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID.String())
	return count, err
}

func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < ?`, cutoff.UnixMicro())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *NotificationRepository) UpsertUser(ctx context.Context, u domain.User, at time.Time) error {
	_, err := r.db.ExecContext(ctx, upsertUser,
		u.ID.String(), u.Email, u.DisplayName, u.Role, at.UnixMicro(), at.UnixMicro())
	return err
}
