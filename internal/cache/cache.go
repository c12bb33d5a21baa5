// Package cache keeps derived attendance read models in Redis so dashboard
// polling does not recompute summaries on every request. Entries are dropped
// on every successful ledger write; a cold or unreachable Redis degrades to
// recomputation, never to stale or missing data.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a nil-safe wrapper: a nil *Cache (Redis not configured) turns
// every operation into a no-op miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache over an existing Redis client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// StudentSummaryKey is the cache key for one student's attendance summary.
func StudentSummaryKey(studentID string) string { return "att:summary:student:" + studentID }

// ClassSummaryKey is the cache key for one class's attendance summary.
func ClassSummaryKey(classID string) string { return "att:summary:class:" + classID }

// GetJSON loads and decodes a cached entry into v. The bool reports a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Printf("cache decode %s: %v", key, err)
		return false
	}
	return true
}

// SetJSON encodes and stores v under key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}

// InvalidateAttendance drops the read models touched by a write to the
// (student, class) pair. Implements the ledger's invalidator hook.
func (c *Cache) InvalidateAttendance(ctx context.Context, studentID, classID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, StudentSummaryKey(studentID), ClassSummaryKey(classID)).Err(); err != nil {
		log.Printf("cache invalidate %s/%s: %v", studentID, classID, err)
	}
}
