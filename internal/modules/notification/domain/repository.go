package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	// CreateMany inserts every notification in a single transaction.
	CreateMany(ctx context.Context, notifications []*Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error)
	// MarkRead only touches a row owned by userID; zero matched rows is not an error.
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// UpsertUser inserts or refreshes a recipient; notifications reference users by id.
	UpsertUser(ctx context.Context, user User, at time.Time) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
