package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "wellness:"

// NewRedisClient builds a client for addr and verifies it with a PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisEntryCache stores day mappings as plain string keys that expire after
// TTL. Day keys embed the date, so expiry alone retires stale mappings.
type RedisEntryCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisEntryCache wraps rdb. A non-positive ttl defaults to 48h.
func NewRedisEntryCache(rdb *goredis.Client, ttl time.Duration) *RedisEntryCache {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisEntryCache{rdb: rdb, ttl: ttl}
}

func entryRedisKey(userID, dayKey string) string {
	return keyPrefix + "entry:" + userID + ":" + dayKey
}

func (c *RedisEntryCache) Get(ctx context.Context, userID, dayKey string) (string, bool, error) {
	id, err := c.rdb.Get(ctx, entryRedisKey(userID, dayKey)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (c *RedisEntryCache) Set(ctx context.Context, userID, dayKey, entryID string) error {
	return c.rdb.Set(ctx, entryRedisKey(userID, dayKey), entryID, c.ttl).Err()
}

// Prune is a no-op; keys expire on their own.
func (c *RedisEntryCache) Prune(context.Context, string) error { return nil }

// RedisHistoryCache stores each user's days in a Redis set.
type RedisHistoryCache struct {
	rdb   *goredis.Client
	ttl   time.Duration
	limit int
}

// NewRedisHistoryCache wraps rdb. Reads are capped at limit days.
func NewRedisHistoryCache(rdb *goredis.Client, ttl time.Duration, limit int) *RedisHistoryCache {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisHistoryCache{rdb: rdb, ttl: ttl, limit: limit}
}

func historyRedisKey(userID string) string { return keyPrefix + "history:" + userID }

// Days reports a miss for an empty set; Redis does not keep empty keys, so a
// user with no history is indistinguishable from an uncached one.
func (c *RedisHistoryCache) Days(ctx context.Context, userID string) ([]string, bool, error) {
	members, err := c.rdb.SMembers(ctx, historyRedisKey(userID)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(members) == 0 {
		return nil, false, nil
	}
	return newestFirst(members, c.limit), true, nil
}

func (c *RedisHistoryCache) Put(ctx context.Context, userID string, days []string) error {
	key := historyRedisKey(userID)
	days = newestFirst(days, c.limit)
	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, key)
		if len(days) > 0 {
			members := make([]any, len(days))
			for i, d := range days {
				members[i] = d
			}
			p.SAdd(ctx, key, members...)
			p.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	return err
}

func (c *RedisHistoryCache) Add(ctx context.Context, userID, day string) error {
	key := historyRedisKey(userID)
	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, key, day)
		p.Expire(ctx, key, c.ttl)
		return nil
	})
	return err
}
