package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
)

type notificationRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Data      []byte    `db:"data"`
	ActionURL string    `db:"action_url"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toRow(n *domain.Notification) (notificationRow, error) {
	data, err := domain.EncodePayload(n.Data)
	if err != nil {
		return notificationRow{}, fmt.Errorf("encode payload: %w", err)
	}
	return notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Data:      data,
		ActionURL: n.ActionURL,
		IsRead:    n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}, nil
}

func (r notificationRow) toDomain() (domain.Notification, error) {
	t := domain.NotificationType(r.Type)
	payload, err := domain.DecodePayload(t, r.Data)
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
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

const insertNotification = `
	INSERT INTO notifications (id, user_id, type, title, message, data, action_url, is_read, created_at, updated_at)
	VALUES (:id, :user_id, :type, :title, :message, :data, :action_url, :is_read, :created_at, :updated_at)
`

const selectColumns = `id, user_id, type, title, message, data, action_url, is_read, created_at, updated_at`

type PgNotificationRepository struct {
	db *sqlx.DB
}

func NewPgNotificationRepository(db *sqlx.DB) *PgNotificationRepository {
	return &PgNotificationRepository{db: db}
}

func (r *PgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	row, err := toRow(n)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, insertNotification, row)
	return err
}

func (r *PgNotificationRepository) CreateMany(ctx context.Context, ns []*domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, n := range ns {
		row, err := toRow(n)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertNotification, row); err != nil {
			return fmt.Errorf("insert notification for user %s: %w", n.UserID, err)
		}
	}
	return tx.Commit()
}

func (r *PgNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, opts domain.ListOptions) ([]domain.Notification, error) {
	opts = opts.Normalize()
	query := `SELECT ` + selectColumns + ` FROM notifications WHERE user_id = $1`
	args := []any{userID}
	if opts.UnreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if !opts.Unbounded() {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
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

func (r *PgNotificationRepository) MarkRead(ctx context.Context, notificationID, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, updated_at = $3
		WHERE id = $1 AND user_id = $2 AND is_read = FALSE
	`
	_, err := r.db.ExecContext(ctx, query, notificationID, userID, at)
	return err
}

func (r *PgNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, updated_at = $2
		WHERE user_id = $1 AND is_read = FALSE
	`
	_, err := r.db.ExecContext(ctx, query, userID, at)
	return err
}

func (r *PgNotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND is_read = FALSE
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

func (r *PgNotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PgNotificationRepository) UpsertUser(ctx context.Context, u domain.User, at time.Time) error {
	query := `
		INSERT INTO users (id, email, display_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.DisplayName, u.Role, at)
	return err
}
