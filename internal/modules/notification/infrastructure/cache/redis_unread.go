package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/talentbook/internal/shared/logging"
)

const (
	unreadPrefix = "notifications:unread:"
	genPrefix    = "notifications:unread-gen:"
	epochKey     = "notifications:unread-epoch"
	DefaultTTL   = 5 * time.Minute
	minGenTTL    = time.Hour
	scanBatch    = 200
)

func UnreadKey(userID uuid.UUID) string {
	return unreadPrefix + userID.String()
}

// GenKey holds the user's invalidation counter.
func GenKey(userID uuid.UUID) string {
	return genPrefix + userID.String()
}

// setIfCurrent stores the count only while the user's generation and the global
// epoch still match the version read before the store was queried.
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
local epoch = redis.call('GET', KEYS[3]) or '0'
if gen .. '/' .. epoch ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisUnreadCache caches unread counts per user. Every Redis failure is
// logged and treated as a miss so the store stays authoritative.
type RedisUnreadCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	genTTL time.Duration
	log    logging.Logger
}

func NewRedisUnreadCache(rdb redis.Cmdable, ttl time.Duration, log logging.Logger) *RedisUnreadCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisUnreadCache{
		rdb:    rdb,
		ttl:    ttl,
		genTTL: max(ttl, minGenTTL),
		log:    logging.OrDefault(log).With("component", "notification.cache"),
	}
}

// Get reads the count, the user's generation and the epoch in one round trip.
// On a Redis failure the version is empty so the caller skips the fill.
func (c *RedisUnreadCache) Get(ctx context.Context, userID uuid.UUID) (int, string, bool) {
	vals, err := c.rdb.MGet(ctx, UnreadKey(userID), GenKey(userID), epochKey).Result()
	if err != nil {
		c.log.Warn("unread cache get failed", "user_id", userID, "error", err)
		return 0, "", false
	}
	version := Version(vals[1], vals[2])
	s, ok := vals[0].(string)
	if !ok {
		return 0, version, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, version, false
	}
	return n, version, true
}

// Version renders a generation/epoch pair as returned by MGET; missing keys count as 0.
func Version(gen, epoch any) string {
	return counter(gen) + "/" + counter(epoch)
}

func counter(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "0"
}

func (c *RedisUnreadCache) Set(ctx context.Context, userID uuid.UUID, count int, version string) {
	if version == "" {
		return
	}
	keys := []string{UnreadKey(userID), GenKey(userID), epochKey}
	err := setIfCurrent.Run(ctx, c.rdb, keys, version, count, c.ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("unread cache set failed", "user_id", userID, "error", err)
	}
}

// Invalidate bumps each user's generation and drops the cached count in one
// transaction, so an in-flight fill read before this call is rejected.
func (c *RedisUnreadCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if len(userIDs) == 0 {
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, GenKey(id))
			pipe.Expire(ctx, GenKey(id), c.genTTL)
			pipe.Del(ctx, UnreadKey(id))
		}
		return nil
	})
	if err != nil {
		c.log.Warn("unread cache invalidate failed", "users", len(userIDs), "error", err)
	}
}

// Flush drops every cached count. Used after retention removes rows for many users.
// The epoch moves first so fills racing the scan are rejected.
func (c *RedisUnreadCache) Flush(ctx context.Context) {
	if err := c.rdb.Incr(ctx, epochKey).Err(); err != nil {
		c.log.Warn("unread cache flush failed", "error", err)
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, unreadPrefix+"*", scanBatch).Result()
		if err != nil {
			c.log.Warn("unread cache flush failed", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				c.log.Warn("unread cache flush failed", "error", err)
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
