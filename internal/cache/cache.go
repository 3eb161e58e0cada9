// Package cache wraps a redis client for the two roles the HTTP layer
// needs outside the transactional engine: a fast-fail read of a course's
// open-seat count so obviously-full courses can be rejected before ever
// touching Postgres, and a fixed-window rate limiter for the public API.
// Grounded directly on the teacher's internal/infrastructure/redis.Cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coursehub/enrollment-service/internal/domain"
)

type Cache struct {
	client *redis.Client
}

func New(addr, password string, db int) *Cache {
	return &Cache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func courseOpenKey(courseID int64) string {
	return "course:open:" + strconv.FormatInt(courseID, 10)
}

// GetCourseOpen returns the cached count of remaining seats. A miss or a
// stale entry is not fatal to the caller: this is an optimisation, not a
// source of truth, so every path through the engine re-derives the real
// count from the conditional UPDATE regardless of what this reports.
func (c *Cache) GetCourseOpen(ctx context.Context, courseID int64) (int, error) {
	val, err := c.client.Get(ctx, courseOpenKey(courseID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrCacheMiss
		}
		return 0, err
	}
	return strconv.Atoi(val)
}

// SetCourseOpen refreshes the cached open-seat count with a short TTL so a
// course that fills up stops being advertised as open within 30 seconds
// even without an explicit invalidation.
func (c *Cache) SetCourseOpen(ctx context.Context, courseID int64, open int) error {
	return c.client.Set(ctx, courseOpenKey(courseID), open, 30*time.Second).Err()
}

// InvalidateCourseOpen drops the cached count after an enroll or cancel
// commits, so the next read goes to the database instead of serving a
// value that the write just made stale.
func (c *Cache) InvalidateCourseOpen(ctx context.Context, courseID int64) error {
	return c.client.Del(ctx, courseOpenKey(courseID)).Err()
}

// AllowRequest implements a fixed-window counter: the first request in a
// window sets the expiry, every request after it increments the same key,
// and the window resets once the key expires. On any redis error this
// fails open rather than rejecting traffic because of a cache outage.
func (c *Cache) AllowRequest(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := c.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return true, nil
	}
	if count == 1 {
		_ = c.client.Expire(ctx, fullKey, window).Err()
	}
	return count <= int64(limit), nil
}
