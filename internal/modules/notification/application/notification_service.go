package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/saransh1220/talentbook/internal/shared/validation"
)

const DefaultRetentionDays = 30

// BatchMode selects how CreateMany treats a batch with bad items.
type BatchMode string

const (
	// BatchAtomic validates every item first and writes the batch in one transaction.
	BatchAtomic BatchMode = "atomic"
	// BatchPartial writes items independently and reports the failed ones.
	BatchPartial BatchMode = "partial"
)

func (m BatchMode) Valid() bool {
	return m == BatchAtomic || m == BatchPartial
}

// Pusher delivers a serialized event to a user's live connections.
type Pusher interface {
	SendToUser(userID uuid.UUID, message []byte)
}

// UnreadCache memoizes per-user unread counts. Implementations treat backend
// failures as cache misses.
//
// A miss returns the user's current version. Set stores a count only while that
// version is still current, so a fill computed before an Invalidate is dropped.
// An empty version means the count must not be stored.
type UnreadCache interface {
	Get(ctx context.Context, userID uuid.UUID) (count int, version string, ok bool)
	Set(ctx context.Context, userID uuid.UUID, count int, version string)
	Invalidate(ctx context.Context, userIDs ...uuid.UUID)
	Flush(ctx context.Context)
}

type Option func(*NotificationService)

func WithClock(c domain.Clock) Option {
	return func(s *NotificationService) { s.clock = c }
}

func WithUnreadCache(c UnreadCache) Option {
	return func(s *NotificationService) { s.cache = c }
}

func WithBatchMode(m BatchMode) Option {
	return func(s *NotificationService) { s.batchMode = m }
}

type NotificationService struct {
	repo      domain.NotificationRepository
	pusher    Pusher
	log       logging.Logger
	clock     domain.Clock
	cache     UnreadCache
	batchMode BatchMode
	validate  *validation.Validator
}

func NewNotificationService(repo domain.NotificationRepository, pusher Pusher, log logging.Logger, opts ...Option) *NotificationService {
	s := &NotificationService{
		repo:      repo,
		pusher:    pusher,
		log:       logging.OrDefault(log).With("component", "notification.service"),
		clock:     domain.SystemClock{},
		cache:     noopCache{},
		batchMode: BatchAtomic,
		validate:  validation.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *NotificationService) BatchMode() BatchMode {
	return s.batchMode
}

// Create stamps and persists one notification addressed to n.UserID.
func (s *NotificationService) Create(ctx context.Context, n domain.Notification) (*domain.Notification, error) {
	if err := validateNotification(n); err != nil {
		return nil, err
	}
	s.stamp(&n)

	if err := s.repo.Create(ctx, &n); err != nil {
		createFailures.WithLabelValues(string(n.Type)).Inc()
		return nil, &domain.PersistenceError{Op: "create", Err: err}
	}
	notificationsCreated.WithLabelValues(string(n.Type)).Inc()

	s.cache.Invalidate(ctx, n.UserID)
	s.push(&n)
	return &n, nil
}

// CreateMany persists a batch according to the configured BatchMode. An empty
// batch performs no write.
func (s *NotificationService) CreateMany(ctx context.Context, ns []domain.Notification) ([]*domain.Notification, error) {
	if len(ns) == 0 {
		return []*domain.Notification{}, nil
	}
	if s.batchMode == BatchPartial {
		return s.createPartial(ctx, ns)
	}
	return s.createAtomic(ctx, ns)
}

func (s *NotificationService) createAtomic(ctx context.Context, ns []domain.Notification) ([]*domain.Notification, error) {
	batch := make([]*domain.Notification, 0, len(ns))
	fields := map[string]string{}
	for i := range ns {
		n := ns[i]
		if err := validateNotification(n); err != nil {
			var ve *domain.ValidationError
			errors.As(err, &ve)
			for f, msg := range ve.Fields {
				fields[fmt.Sprintf("[%d].%s", i, f)] = msg
			}
			continue
		}
		s.stamp(&n)
		batch = append(batch, &n)
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	if err := s.repo.CreateMany(ctx, batch); err != nil {
		createFailures.WithLabelValues("batch").Inc()
		return nil, &domain.PersistenceError{Op: "create many", Err: err}
	}

	users := make([]uuid.UUID, 0, len(batch))
	for _, n := range batch {
		notificationsCreated.WithLabelValues(string(n.Type)).Inc()
		users = append(users, n.UserID)
	}
	s.cache.Invalidate(ctx, users...)
	for _, n := range batch {
		s.push(n)
	}
	return batch, nil
}

// ItemError ties a failure in a partial batch to the item's position.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string { return fmt.Sprintf("item %d: %v", e.Index, e.Err) }

func (e *ItemError) Unwrap() error { return e.Err }

func (s *NotificationService) createPartial(ctx context.Context, ns []domain.Notification) ([]*domain.Notification, error) {
	created := make([]*domain.Notification, 0, len(ns))
	var errs []error
	for i := range ns {
		n, err := s.Create(ctx, ns[i])
		if err != nil {
			errs = append(errs, &ItemError{Index: i, Err: err})
			continue
		}
		created = append(created, n)
	}
	if len(errs) > 0 {
		s.log.Warn("partial batch had failures", "total", len(ns), "failed", len(errs))
	}
	return created, errors.Join(errs...)
}

// ListForUser returns the user's notifications newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID, opts domain.ListOptions) ([]domain.Notification, error) {
	items, err := s.repo.ListByUser(ctx, userID, opts.Normalize())
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

// MarkRead is a silent no-op when the id is unknown or owned by someone else.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, notificationID, userID, s.clock.Now()); err != nil {
		return &domain.PersistenceError{Op: "mark read", Err: err}
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllRead(ctx, userID, s.clock.Now()); err != nil {
		return &domain.PersistenceError{Op: "mark all read", Err: err}
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	n, version, ok := s.cache.Get(ctx, userID)
	if ok {
		return n, nil
	}
	n, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "unread count", Err: err}
	}
	s.cache.Set(ctx, userID, n, version)
	return n, nil
}

// DeleteOlderThan permanently removes notifications created more than days ago.
// days <= 0 uses DefaultRetentionDays.
func (s *NotificationService) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := s.clock.Now().AddDate(0, 0, -days)

	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "delete older than", Err: err}
	}
	if deleted > 0 {
		s.cache.Flush(ctx)
	}
	return deleted, nil
}

// SyncUser records a recipient published by the identity service. Notifications
// for users that were never synced are rejected by the store.
func (s *NotificationService) SyncUser(ctx context.Context, u domain.User) error {
	if fields := s.validate.Struct(u); fields != nil {
		return &domain.ValidationError{Fields: fields}
	}
	if err := s.repo.UpsertUser(ctx, u, s.clock.Now()); err != nil {
		return &domain.PersistenceError{Op: "upsert user", Err: err}
	}
	return nil
}

func (s *NotificationService) stamp(n *domain.Notification) {
	now := s.clock.Now()
	n.ID = uuid.New()
	n.Read = false
	n.CreatedAt = now
	n.UpdatedAt = now
}

type pushEvent struct {
	Event        string               `json:"event"`
	Notification *domain.Notification `json:"notification"`
}

func (s *NotificationService) push(n *domain.Notification) {
	if s.pusher == nil {
		return
	}
	msg, err := json.Marshal(pushEvent{Event: "notification.created", Notification: n})
	if err != nil {
		s.log.Warn("encode push event", "notification_id", n.ID, "error", err)
		return
	}
	s.pusher.SendToUser(n.UserID, msg)
}

func validateNotification(n domain.Notification) error {
	fields := map[string]string{}
	if n.UserID == uuid.Nil {
		fields["userId"] = "is required"
	}
	if !n.Type.Valid() {
		fields["type"] = fmt.Sprintf("unknown type %q", n.Type)
	}
	if n.Title == "" {
		fields["title"] = "is required"
	}
	if n.Message == "" {
		fields["message"] = "is required"
	}
	if !validation.IsRelativePath(n.ActionURL) {
		fields["actionUrl"] = "must be a relative path starting with /"
	}
	if n.Data == nil {
		fields["data"] = "is required"
	} else if n.Data.NotificationType() != n.Type {
		fields["data"] = domain.ErrPayloadMismatch.Error()
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (int, string, bool) { return 0, "", false }
func (noopCache) Set(context.Context, uuid.UUID, int, string)        {}
func (noopCache) Invalidate(context.Context, ...uuid.UUID)           {}
func (noopCache) Flush(context.Context)                              {}
