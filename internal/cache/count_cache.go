package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountCache caches follower/following cardinalities in Redis.
// The follows table stays the source of truth; entries expire by TTL
// and are dropped eagerly whenever an edge changes.
type CountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCountCache(rdb *redis.Client, ttl time.Duration) *CountCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CountCache{rdb: rdb, ttl: ttl}
}

func followersKey(userID string) string { return fmt.Sprintf("counts:followers:%s", userID) }
func followingKey(userID string) string { return fmt.Sprintf("counts:following:%s", userID) }

func (c *CountCache) GetFollowers(ctx context.Context, userID string) (int64, bool) {
	return c.get(ctx, followersKey(userID))
}

func (c *CountCache) SetFollowers(ctx context.Context, userID string, n int64) {
	_ = c.rdb.Set(ctx, followersKey(userID), n, c.ttl).Err()
}

func (c *CountCache) GetFollowing(ctx context.Context, userID string) (int64, bool) {
	return c.get(ctx, followingKey(userID))
}

func (c *CountCache) SetFollowing(ctx context.Context, userID string, n int64) {
	_ = c.rdb.Set(ctx, followingKey(userID), n, c.ttl).Err()
}

// Invalidate drops both counters touched by a follower->followee edge change.
func (c *CountCache) Invalidate(ctx context.Context, followerID, followeeID string) {
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, followingKey(followerID))
	pipe.Del(ctx, followersKey(followeeID))
	_, _ = pipe.Exec(ctx)
}

func (c *CountCache) get(ctx context.Context, key string) (int64, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
