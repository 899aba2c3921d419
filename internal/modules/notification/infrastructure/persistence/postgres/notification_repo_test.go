package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
	"github.com/saransh1220/talentbook/internal/modules/notification/infrastructure/persistence/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "user_id", "type", "title", "message", "data", "action_url", "is_read", "created_at", "updated_at"}

func sampleNotification(userID uuid.UUID) *domain.Notification {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      domain.NotificationTypeBookingAccepted,
		Title:     "Jane Doe accepted booking",
		Message:   "m",
		Data:      domain.BookingAcceptedPayload{BookingID: "bk_1", BookingTalentID: "bt_9"},
		ActionURL: "/admin/contracts?booking=bk_1&talent=bt_9",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPgNotificationRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := postgres.NewPgNotificationRepository(db)
	n := sampleNotification(uuid.New())

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(n.ID, n.UserID, "booking_accepted", n.Title, n.Message,
			[]byte(`{"bookingId":"bk_1","bookingTalentId":"bt_9"}`), n.ActionURL, false, n.CreatedAt, n.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), n))

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnError(errors.New(`violates foreign key constraint "notifications_user_id_fkey"`))
	assert.Error(t, repo.Create(context.Background(), n))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgNotificationRepository_CreateMany(t *testing.T) {
	ctx := context.Background()

	t.Run("commits one transaction", func(t *testing.T) {
		db, mock, cleanup := newMockDB(t)
		defer cleanup()
		repo := postgres.NewPgNotificationRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO notifications`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO notifications`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateMany(ctx, []*domain.Notification{sampleNotification(uuid.New()), sampleNotification(uuid.New())})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock, cleanup := newMockDB(t)
		defer cleanup()
		repo := postgres.NewPgNotificationRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO notifications`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO notifications`).WillReturnError(errors.New("fk violation"))
		mock.ExpectRollback()

		err := repo.CreateMany(ctx, []*domain.Notification{sampleNotification(uuid.New()), sampleNotification(uuid.New())})
		require.ErrorContains(t, err, "fk violation")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin error", func(t *testing.T) {
		db, mock, cleanup := newMockDB(t)
		defer cleanup()
		repo := postgres.NewPgNotificationRepository(db)

		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
		require.EqualError(t, repo.CreateMany(ctx, []*domain.Notification{sampleNotification(uuid.New())}), "pool exhausted")
	})

	t.Run("empty batch", func(t *testing.T) {
		db, mock, cleanup := newMockDB(t)
		defer cleanup()
		repo := postgres.NewPgNotificationRepository(db)

		require.NoError(t, repo.CreateMany(ctx, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgNotificationRepository_ListByUser(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := postgres.NewPgNotificationRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	id := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(columns).
		AddRow(id.String(), userID.String(), "contract_created", "New contract ready to sign", "m",
			[]byte(`{"contractId":"ct_1","bookingId":"bk_1"}`), "/talent/contracts", false, created, created)
	mock.ExpectQuery(`SELECT id, user_id, type, .* FROM notifications WHERE user_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2`).
		WithArgs(userID, domain.DefaultListLimit).
		WillReturnRows(rows)

	items, err := repo.ListByUser(ctx, userID, domain.ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, userID, items[0].UserID)
	assert.Equal(t, domain.ContractCreatedPayload{ContractID: "ct_1", BookingID: "bk_1"}, items[0].Data)
	assert.False(t, items[0].Read)

	mock.ExpectQuery(`FROM notifications WHERE user_id = \$1 AND is_read = FALSE ORDER BY created_at DESC, id DESC$`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(columns))
	items, err = repo.ListByUser(ctx, userID, domain.ListOptions{UnreadOnly: true, Limit: domain.NoLimit})
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgNotificationRepository_ListByUser_Errors(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := postgres.NewPgNotificationRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery(`FROM notifications`).
		WithArgs(userID, 10).
		WillReturnError(errors.New("query fail"))
	items, err := repo.ListByUser(ctx, userID, domain.ListOptions{Limit: 10})
	require.EqualError(t, err, "query fail")
	assert.Nil(t, items)

	now := time.Now()
	mock.ExpectQuery(`FROM notifications`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(uuid.NewString(), userID.String(), "info", "t", "m", []byte(`{}`), "/", false, now, now))
	_, err = repo.ListByUser(ctx, userID, domain.ListOptions{})
	assert.ErrorIs(t, err, domain.ErrUnknownType)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgNotificationRepository_ReadState(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := postgres.NewPgNotificationRepository(db)
	ctx := context.Background()
	notificationID := uuid.New()
	userID := uuid.New()
	at := time.Now()

	mock.ExpectExec(`UPDATE notifications\s+SET is_read = TRUE, updated_at = \$3\s+WHERE id = \$1 AND user_id = \$2 AND is_read = FALSE`).
		WithArgs(notificationID, userID, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkRead(ctx, notificationID, userID, at))

	t.Run("no matching row is not an error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE notifications`).
			WithArgs(notificationID, userID, at).
			WillReturnResult(sqlmock.NewResult(0, 0))
		require.NoError(t, repo.MarkRead(ctx, notificationID, userID, at))
	})

	t.Run("exec error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE notifications`).
			WithArgs(notificationID, userID, at).
			WillReturnError(errors.New("exec fail"))
		require.EqualError(t, repo.MarkRead(ctx, notificationID, userID, at), "exec fail")
	})

	mock.ExpectExec(`UPDATE notifications\s+SET is_read = TRUE, updated_at = \$2\s+WHERE user_id = \$1 AND is_read = FALSE`).
		WithArgs(userID, at).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.MarkAllRead(ctx, userID, at))

	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(userID, at).
		WillReturnError(errors.New("exec fail"))
	require.EqualError(t, repo.MarkAllRead(ctx, userID, at), "exec fail")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgNotificationRepository_UnreadCount(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := postgres.NewPgNotificationRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	count, err := repo.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs(userID).
		WillReturnError(errors.New("count fail"))
	count, err = repo.UnreadCount(ctx, userID)
	require.EqualError(t, err, "count fail")
	assert.Equal(t, 0, count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgNotificationRepository_DeleteOlderThan(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := postgres.NewPgNotificationRepository(db)
	ctx := context.Background()
	cutoff := time.Now().AddDate(0, 0, -30)

	mock.ExpectExec(`DELETE FROM notifications WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))
	deleted, err := repo.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 12, deleted)

	mock.ExpectExec(`DELETE FROM notifications`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows fail")))
	_, err = repo.DeleteOlderThan(ctx, cutoff)
	require.EqualError(t, err, "rows fail")

	mock.ExpectExec(`DELETE FROM notifications`).
		WithArgs(cutoff).
		WillReturnError(errors.New("exec fail"))
	_, err = repo.DeleteOlderThan(ctx, cutoff)
	require.EqualError(t, err, "exec fail")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgNotificationRepository_UpsertUser(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := postgres.NewPgNotificationRepository(db)
	u := domain.User{ID: uuid.New(), Email: "jane@example.com", DisplayName: "Jane Doe", Role: domain.RoleTalent}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(u.ID, u.Email, u.DisplayName, u.Role, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpsertUser(context.Background(), u, at))

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New(`duplicate key value violates unique constraint "users_email_key"`))
	assert.Error(t, repo.UpsertUser(context.Background(), u, at))

	require.NoError(t, mock.ExpectationsWereMet())
}
