package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreadCountTTL bounds staleness of the badge counter.
const unreadCountTTL = 30 * time.Second

// CountCache keeps the per-user unread counter in Redis so the badge poll
// does not hit PostgreSQL on every request. A nil cache is a no-op.
type CountCache struct {
	client *redis.Client
}

// NewCountCache constructs a cache around the Redis client.
func NewCountCache(client *redis.Client) *CountCache {
	if client == nil {
		return nil
	}
	return &CountCache{client: client}
}

func unreadKey(recipientID int64) string {
	return "notify:unread:" + strconv.FormatInt(recipientID, 10)
}

// Get returns the cached counter, or ok=false on miss or error.
func (c *CountCache) Get(ctx context.Context, recipientID int64) (int64, bool) {
	if c == nil {
		return 0, false
	}
	count, err := c.client.Get(ctx, unreadKey(recipientID)).Int64()
	if err != nil {
		return 0, false
	}
	return count, true
}

// Set stores the counter with a short TTL.
func (c *CountCache) Set(ctx context.Context, recipientID, count int64) {
	if c == nil {
		return
	}
	c.client.Set(ctx, unreadKey(recipientID), count, unreadCountTTL)
}

// Invalidate drops the counter after a write.
func (c *CountCache) Invalidate(ctx context.Context, recipientID int64) {
	if c == nil {
		return
	}
	c.client.Del(ctx, unreadKey(recipientID))
}
