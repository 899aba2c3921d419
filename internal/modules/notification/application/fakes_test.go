package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
)

// memRepo is an in-memory NotificationRepository with the same ordering and
// ownership rules as the SQL stores.
type memRepo struct {
	mu    sync.Mutex
	rows  []domain.Notification
	users map[uuid.UUID]domain.User

	err         error
	afterCount  func()
	createCalls int
	listCalls   int
	countCalls  int
}

func newMemRepo() *memRepo { return &memRepo{users: map[uuid.UUID]domain.User{}} }

func (r *memRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, *n)
	return nil
}

func (r *memRepo) CreateMany(_ context.Context, ns []*domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.err != nil {
		return r.err
	}
	for _, n := range ns {
		r.rows = append(r.rows, *n)
	}
	return nil
}

func (r *memRepo) ListByUser(_ context.Context, userID uuid.UUID, opts domain.ListOptions) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Notification
	for _, n := range r.rows {
		if n.UserID != userID || (opts.UnreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if !opts.Unbounded() && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *memRepo) MarkRead(_ context.Context, id, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].UserID == userID && !r.rows[i].Read {
			r.rows[i].Read = true
			r.rows[i].UpdatedAt = at
		}
	}
	return nil
}

func (r *memRepo) MarkAllRead(_ context.Context, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for i := range r.rows {
		if r.rows[i].UserID == userID && !r.rows[i].Read {
			r.rows[i].Read = true
			r.rows[i].UpdatedAt = at
		}
	}
	return nil
}

func (r *memRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	r.countCalls++
	if r.err != nil {
		r.mu.Unlock()
		return 0, r.err
	}
	count := 0
	for _, n := range r.rows {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	hook := r.afterCount
	r.afterCount = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return count, nil
}

func (r *memRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	kept := r.rows[:0]
	var deleted int64
	for _, n := range r.rows {
		if n.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	r.rows = kept
	return deleted, nil
}

func (r *memRepo) UpsertUser(_ context.Context, u domain.User, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.users[u.ID] = u
	return nil
}

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type pushed struct {
	userID  uuid.UUID
	message []byte
}

type recordingPusher struct {
	mu   sync.Mutex
	sent []pushed
}

func (p *recordingPusher) SendToUser(userID uuid.UUID, message []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{userID: userID, message: message})
}

// mapCache versions every user the way the Redis cache does: Invalidate bumps
// the user's generation and Flush bumps a global epoch.
type mapCache struct {
	counts      map[uuid.UUID]int
	gens        map[uuid.UUID]int
	epoch       int
	invalidated []uuid.UUID
	flushed     int
	staleSets   int
}

func newMapCache() *mapCache {
	return &mapCache{counts: map[uuid.UUID]int{}, gens: map[uuid.UUID]int{}}
}

func (c *mapCache) version(userID uuid.UUID) string {
	return fmt.Sprintf("%d/%d", c.gens[userID], c.epoch)
}

func (c *mapCache) Get(_ context.Context, userID uuid.UUID) (int, string, bool) {
	n, ok := c.counts[userID]
	return n, c.version(userID), ok
}

func (c *mapCache) Set(_ context.Context, userID uuid.UUID, count int, version string) {
	if version == "" || version != c.version(userID) {
		c.staleSets++
		return
	}
	c.counts[userID] = count
}

func (c *mapCache) Invalidate(_ context.Context, userIDs ...uuid.UUID) {
	for _, id := range userIDs {
		c.gens[id]++
		delete(c.counts, id)
		c.invalidated = append(c.invalidated, id)
	}
}

func (c *mapCache) Flush(context.Context) {
	c.epoch++
	c.counts = map[uuid.UUID]int{}
	c.flushed++
}
