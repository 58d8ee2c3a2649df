package store

import (
	"context"
	"fmt"
	"time"

	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/common/redis"
)

// seenTTL bounds how long a permit stays deduplicated. Permits change status
// over weeks, so a re-crawl after the window must process them again.
const seenTTL = 24 * time.Hour

// SeenCache remembers which permits a recent crawl already processed, so
// repeated runs over overlapping date windows skip redundant snapshot and
// notification work. Persistence itself always happens; the upsert is
// idempotent.
type SeenCache struct {
	redis *redis.RedisClient
}

func NewSeenCache(client *redis.RedisClient) *SeenCache {
	return &SeenCache{redis: client}
}

func seenKey(p models.Permit) string {
	return fmt.Sprintf("permit-seen:%s:%s:%s", p.State, p.City, p.PermitNumber)
}

// MarkSeen records a permit and reports whether it was first seen just now.
func (c *SeenCache) MarkSeen(ctx context.Context, p models.Permit) (bool, error) {
	return c.redis.SetNX(ctx, seenKey(p), string(p.Status), seenTTL)
}

// Seen reports whether the permit was processed within the TTL window.
func (c *SeenCache) Seen(ctx context.Context, p models.Permit) (bool, error) {
	return c.redis.Exists(ctx, seenKey(p))
}

// Forget drops a permit from the cache.
func (c *SeenCache) Forget(ctx context.Context, p models.Permit) error {
	return c.redis.Delete(ctx, seenKey(p))
}
